package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/app"
	"github.com/grvbrk/clipshare/internal/config"
	"github.com/grvbrk/clipshare/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := app.NewApplication(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start application")
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.WithError(err).Error("Error closing application")
		}
	}()

	r := routes.SetupRoutes(app)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		app.Logger.WithField("port", cfg.Server.Port).Info("Server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.WithError(err).Error("Error starting server")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	app.Logger.WithField("signal", sig.String()).Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.WithError(err).Error("Error during server shutdown")
	}

	app.Logger.Info("Server stopped")
}
