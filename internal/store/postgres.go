package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/models"
)

const postgresBackend = "postgres"

type PostgresVideoStore struct {
	db     *sql.DB
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewPostgresVideoStore(db *sql.DB, logger logrus.FieldLogger) *PostgresVideoStore {
	if db == nil {
		panic("db cannot be nil for PostgresVideoStore")
	}
	return &PostgresVideoStore{db: db, logger: logger, now: time.Now}
}

func (pg *PostgresVideoStore) SaveMetadata(ctx context.Context, id, url string) (*models.Video, error) {
	query := `
	WITH saved AS (
		INSERT INTO videos (id, url, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET url = EXCLUDED.url, created_at = EXCLUDED.created_at
		RETURNING id, url, created_at
	)
	SELECT s.id, s.url, s.created_at, COALESCE(c.views, 0), COALESCE(c.completions, 0)
	FROM saved s
	LEFT JOIN video_counters c ON c.id = s.id;
	`

	video, err := scanVideo(pg.db.QueryRowContext(ctx, query, id, url, pg.now().UTC()))
	if err != nil {
		pg.logger.WithError(err).WithField("video.id", id).Error("failed to save video metadata")
		return nil, storageError(postgresBackend, "save metadata", err)
	}

	return video, nil
}

func (pg *PostgresVideoStore) GetMetadata(ctx context.Context, id string) (*models.Video, error) {
	query := `
	SELECT v.id, v.url, v.created_at, COALESCE(c.views, 0), COALESCE(c.completions, 0)
	FROM videos v
	LEFT JOIN video_counters c ON c.id = v.id
	WHERE v.id = $1;
	`

	video, err := scanVideo(pg.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(postgresBackend, "get metadata", err)
	}

	return video, nil
}

func scanVideo(row *sql.Row) (*models.Video, error) {
	var video models.Video
	var createdAt time.Time

	err := row.Scan(&video.ID, &video.URL, &createdAt, &video.Views, &video.Completions)
	if err != nil {
		return nil, err
	}
	video.CreatedAt = createdAt.UnixMilli()

	return &video, nil
}

func (pg *PostgresVideoStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	query := `
	INSERT INTO video_counters (id, views) VALUES ($1, 1)
	ON CONFLICT (id) DO UPDATE SET views = video_counters.views + 1
	RETURNING views;
	`
	return pg.increment(ctx, query, id, counterViews)
}

func (pg *PostgresVideoStore) IncrementCompletions(ctx context.Context, id string) (int64, error) {
	query := `
	INSERT INTO video_counters (id, completions) VALUES ($1, 1)
	ON CONFLICT (id) DO UPDATE SET completions = video_counters.completions + 1
	RETURNING completions;
	`
	return pg.increment(ctx, query, id, counterCompletions)
}

func (pg *PostgresVideoStore) increment(ctx context.Context, query, id string, c counter) (int64, error) {
	var total int64
	if err := pg.db.QueryRowContext(ctx, query, id).Scan(&total); err != nil {
		pg.logger.WithError(err).WithField("video.id", id).Errorf("failed to increment %s", c)
		return 0, storageError(postgresBackend, "increment "+string(c), err)
	}
	return total, nil
}

func (pg *PostgresVideoStore) GetViews(ctx context.Context, id string) (int64, error) {
	return pg.read(ctx, `SELECT views FROM video_counters WHERE id = $1;`, id, counterViews)
}

func (pg *PostgresVideoStore) GetCompletions(ctx context.Context, id string) (int64, error) {
	return pg.read(ctx, `SELECT completions FROM video_counters WHERE id = $1;`, id, counterCompletions)
}

func (pg *PostgresVideoStore) read(ctx context.Context, query, id string, c counter) (int64, error) {
	var total int64
	err := pg.db.QueryRowContext(ctx, query, id).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageError(postgresBackend, "get "+string(c), err)
	}
	return total, nil
}

func (pg *PostgresVideoStore) Ping(ctx context.Context) error {
	return pg.db.PingContext(ctx)
}

func (pg *PostgresVideoStore) Close() error {
	return pg.db.Close()
}
