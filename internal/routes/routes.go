package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grvbrk/clipshare/internal/app"
)

func SetupRoutes(app *app.Application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitAll(app.Config.Server.RateLimitPerMinute, time.Minute))
	r.Use(app.MiddlewareHandler.RequestLogger)
	r.Use(app.MiddlewareHandler.Security)

	r.Get("/health", app.HealthHandler.HandlerHealth)
	r.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(app.MiddlewareHandler.Cors)

		r.Post("/upload", app.UploadHandler.HandlerUploadVideo)
		r.Get("/video/{id}", app.VideoHandler.HandlerGetVideoByID)
		r.Get("/video/", app.VideoHandler.HandlerGetVideoByID)

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/view", app.AnalyticsVideoHandler.HandlerRecordView)
			r.Get("/view", app.AnalyticsVideoHandler.HandlerGetViews)
			r.Post("/complete", app.AnalyticsVideoHandler.HandlerRecordCompletion)
			r.Get("/complete", app.AnalyticsVideoHandler.HandlerGetCompletions)
		})
	})

	if local, ok := app.LocalUploads(); ok {
		prefix := local.URLPrefix()
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir())))
		r.Handle(prefix+"/*", files)
	}

	return r
}
