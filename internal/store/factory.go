package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/config"
)

// NewVideoStore opens the backend named by cfg.Backend.
func NewVideoStore(ctx context.Context, cfg config.StoreConfig, logger logrus.FieldLogger) (VideoStore, error) {
	logger = logger.WithField("store.backend", cfg.Backend)

	switch cfg.Backend {
	case config.StoreRedis:
		client, err := ConnectRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisVideoStore(client, logger), nil

	case config.StoreFile:
		return NewFileVideoStore(cfg.FilePath, logger)

	case config.StoreBolt:
		return OpenBoltVideoStore(cfg.BoltPath, logger)

	case config.StorePostgres:
		db, err := ConnectPGDB(ctx, cfg.DBURL, logger)
		if err != nil {
			return nil, err
		}
		if err := MigrateFS(db, MigrationsFS, "migrations"); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database migrated...")
		return NewPostgresVideoStore(db, logger), nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
