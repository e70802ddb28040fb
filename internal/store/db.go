package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

func ConnectPGDB(ctx context.Context, dsn string, logger logrus.FieldLogger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	// Retry up to 10 times, waiting 3 seconds between attempts
	for i := 1; i <= 10; i++ {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			logger.WithError(err).WithField("attempt", i).Warn("failed to open DB")
		} else {
			err = db.PingContext(ctx)
			if err == nil {
				logger.Info("Connected to Database!")
				return db, nil
			}
			db.Close()
			logger.WithError(err).WithField("attempt", i).Warn("DB not ready")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	// All retries failed
	return nil, fmt.Errorf("could not connect to database after multiple attempts: %w", err)
}

func MigrateFS(db *sql.DB, migrationsFS fs.FS, dir string) error {
	goose.SetBaseFS(migrationsFS)
	defer func() {
		goose.SetBaseFS(nil)
	}()
	return Migrate(db, dir)
}

func Migrate(db *sql.DB, dir string) error {
	err := goose.SetDialect("postgres")
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	err = goose.Up(db, dir)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
