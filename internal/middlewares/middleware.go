package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

type MiddlewareHandler struct {
	Logger logrus.FieldLogger
	cors   *cors.Cors
}

func NewMiddlewareHandler(logger logrus.FieldLogger, allowedOrigins []string) *MiddlewareHandler {
	return &MiddlewareHandler{
		Logger: logger,
		cors: cors.New(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
			MaxAge:         86400, // 24 hours
		}),
	}
}

func (mh *MiddlewareHandler) Cors(next http.Handler) http.Handler {
	return mh.cors.Handler(next)
}

func (mh *MiddlewareHandler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		entry := mh.Logger.WithFields(logrus.Fields{
			"http.method":        r.Method,
			"http.path":          r.URL.Path,
			"http.origin":        r.Header.Get("Origin"),
			"http.status_code":   status,
			"http.response_size": ww.BytesWritten(),
			"http.duration":      time.Since(start),
		})

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
	})
}

func (mh *MiddlewareHandler) Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
