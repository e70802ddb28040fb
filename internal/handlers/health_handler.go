package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/store"
	"github.com/grvbrk/clipshare/internal/utils"
)

type HealthHandler struct {
	VideoStore store.VideoStore
	Logger     logrus.FieldLogger
	startTime  time.Time
}

func NewHealthHandler(videoStore store.VideoStore, logger logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{
		VideoStore: videoStore,
		Logger:     logger,
		startTime:  time.Now(),
	}
}

// HandlerHealth reports store connectivity and uptime; 503 when the store
// cannot be reached.
func (hh *HealthHandler) HandlerHealth(w http.ResponseWriter, r *http.Request) {
	storeStatus := "healthy"
	if err := hh.VideoStore.Ping(r.Context()); err != nil {
		hh.Logger.WithError(err).Warn("health check: store ping failed")
		storeStatus = "unhealthy"
	}

	status := http.StatusOK
	overall := "healthy"
	if storeStatus != "healthy" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	utils.WriteJSON(w, status, utils.Envelope{
		"status": overall,
		"store":  storeStatus,
		"uptime": time.Since(hh.startTime).Round(time.Second).String(),
	})
}
