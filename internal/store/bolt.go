package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/grvbrk/clipshare/internal/models"
)

const boltBackend = "bolt"

var bucketName = []byte("videos")

// BoltVideoStore keeps one JSON record per id in an embedded bbolt file.
// bbolt admits a single read-write transaction at a time, which is what
// makes the increments safe.
type BoltVideoStore struct {
	db     *bbolt.DB
	logger logrus.FieldLogger
	now    func() time.Time
}

func OpenBoltVideoStore(path string, logger logrus.FieldLogger) (*BoltVideoStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	s, err := NewBoltVideoStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewBoltVideoStore(db *bbolt.DB, logger logrus.FieldLogger) (*BoltVideoStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltVideoStore{db: db, logger: logger, now: time.Now}, nil
}

func (s *BoltVideoStore) get(id string) (*models.Video, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d := tx.Bucket(bucketName).Get([]byte(id))
	if d == nil {
		return nil, nil
	}

	var video models.Video
	if err := json.Unmarshal(d, &video); err != nil {
		return nil, err
	}

	return &video, nil
}

// modify runs fn against the current record (nil when absent) inside one
// read-write transaction and stores whatever fn returns.
func (s *BoltVideoStore) modify(op, id string, fn func(video *models.Video) *models.Video) (*models.Video, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, storageError(boltBackend, op, err)
	}
	defer tx.Rollback()

	b := tx.Bucket(bucketName)

	var current *models.Video
	if d := b.Get([]byte(id)); d != nil {
		current = &models.Video{}
		if err := json.Unmarshal(d, current); err != nil {
			return nil, storageError(boltBackend, op, err)
		}
	}

	next := fn(current)

	data, err := json.Marshal(next)
	if err != nil {
		return nil, storageError(boltBackend, op, err)
	}

	if err := b.Put([]byte(id), data); err != nil {
		s.logger.WithError(err).WithField("video.id", id).Errorf("failed to %s", op)
		return nil, storageError(boltBackend, op, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.WithError(err).WithField("video.id", id).Errorf("failed to %s", op)
		return nil, storageError(boltBackend, op, err)
	}

	return next, nil
}

func (s *BoltVideoStore) SaveMetadata(ctx context.Context, id, url string) (*models.Video, error) {
	return s.modify("save metadata", id, func(current *models.Video) *models.Video {
		video := models.NewVideo(id, url, s.now())
		if current != nil {
			video.Views = current.Views
			video.Completions = current.Completions
		}
		return video
	})
}

func (s *BoltVideoStore) GetMetadata(ctx context.Context, id string) (*models.Video, error) {
	video, err := s.get(id)
	if err != nil {
		return nil, storageError(boltBackend, "get metadata", err)
	}
	if video == nil || video.URL == "" {
		return nil, nil
	}
	return video, nil
}

func (s *BoltVideoStore) increment(id string, c counter) (int64, error) {
	video, err := s.modify("increment "+string(c), id, func(current *models.Video) *models.Video {
		if current == nil {
			current = &models.Video{ID: id}
		}
		if c == counterCompletions {
			current.Completions++
		} else {
			current.Views++
		}
		return current
	})
	if err != nil {
		return 0, err
	}

	if c == counterCompletions {
		return video.Completions, nil
	}
	return video.Views, nil
}

func (s *BoltVideoStore) read(id string, c counter) (int64, error) {
	video, err := s.get(id)
	if err != nil {
		return 0, storageError(boltBackend, "get "+string(c), err)
	}
	if video == nil {
		return 0, nil
	}
	if c == counterCompletions {
		return video.Completions, nil
	}
	return video.Views, nil
}

func (s *BoltVideoStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	return s.increment(id, counterViews)
}

func (s *BoltVideoStore) IncrementCompletions(ctx context.Context, id string) (int64, error) {
	return s.increment(id, counterCompletions)
}

func (s *BoltVideoStore) GetViews(ctx context.Context, id string) (int64, error) {
	return s.read(id, counterViews)
}

func (s *BoltVideoStore) GetCompletions(ctx context.Context, id string) (int64, error) {
	return s.read(id, counterCompletions)
}

func (s *BoltVideoStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketName) == nil {
			return storageError(boltBackend, "ping", fmt.Errorf("bucket %s missing", bucketName))
		}
		return nil
	})
}

func (s *BoltVideoStore) Close() error {
	return s.db.Close()
}
