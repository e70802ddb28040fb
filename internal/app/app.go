package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/blob"
	"github.com/grvbrk/clipshare/internal/config"
	"github.com/grvbrk/clipshare/internal/handlers"
	handler_analytics "github.com/grvbrk/clipshare/internal/handlers/analytics"
	"github.com/grvbrk/clipshare/internal/metrics"
	"github.com/grvbrk/clipshare/internal/middlewares"
	"github.com/grvbrk/clipshare/internal/store"
	"github.com/grvbrk/clipshare/internal/trim"
	"github.com/grvbrk/clipshare/internal/utils"
)

type Application struct {
	Config                *config.Config
	Logger                *logrus.Logger
	Registry              *prometheus.Registry
	VideoStore            store.VideoStore
	BlobStore             blob.BlobStore
	MiddlewareHandler     *middlewares.MiddlewareHandler
	UploadHandler         *handlers.UploadHandler
	VideoHandler          *handlers.VideoHandler
	HealthHandler         *handlers.HealthHandler
	AnalyticsVideoHandler *handler_analytics.AnalyticsVideoHandler

	closeBlob func() error
}

func NewLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, nil
}

func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	return NewApplicationWithLogger(ctx, cfg, logger)
}

func NewApplicationWithLogger(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Application, error) {
	videoStore, err := store.NewVideoStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.WithError(err).WithField("store.backend", cfg.Store.Backend).Error("Error opening video store")
		return nil, err
	}

	blobStore, closeBlob, err := blob.NewBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		logger.WithError(err).WithField("blob.backend", cfg.Blob.Backend).Error("Error opening blob store")
		videoStore.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	transcoder := trim.NewFFmpeg(cfg.Trim.FFmpegPath)

	uploadHandler := handlers.NewUploadHandler(videoStore, blobStore, transcoder, m,
		logger.WithField("handler", "upload"), cfg.Server.ShareURL, cfg.Server.MaxUploadBytes)
	videoHandler := handlers.NewVideoHandler(videoStore, logger.WithField("handler", "video"))
	healthHandler := handlers.NewHealthHandler(videoStore, logger.WithField("handler", "health"))
	analyticsVideoHandler := handler_analytics.NewAnalyticsVideoHandler(videoStore, m, logger.WithField("handler", "analytics"))

	utils.SetLogger(logger.WithField("component", "http"))
	middlewareHandler := middlewares.NewMiddlewareHandler(logger, cfg.Server.AllowedOrigins)

	logger.WithFields(logrus.Fields{
		"store.backend": cfg.Store.Backend,
		"blob.backend":  cfg.Blob.Backend,
	}).Info("Application initialized")

	app := &Application{
		Config:                cfg,
		Logger:                logger,
		Registry:              registry,
		VideoStore:            videoStore,
		BlobStore:             blobStore,
		MiddlewareHandler:     middlewareHandler,
		UploadHandler:         uploadHandler,
		VideoHandler:          videoHandler,
		HealthHandler:         healthHandler,
		AnalyticsVideoHandler: analyticsVideoHandler,
		closeBlob:             closeBlob,
	}

	return app, nil
}

// LocalUploads returns the local blob store when uploads are served by this
// process.
func (app *Application) LocalUploads() (*blob.LocalStore, bool) {
	s, ok := app.BlobStore.(*blob.LocalStore)
	return s, ok
}

func (app *Application) Close() error {
	return errors.Join(app.VideoStore.Close(), app.closeBlob())
}
