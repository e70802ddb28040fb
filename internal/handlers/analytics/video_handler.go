package analytics

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/metrics"
	"github.com/grvbrk/clipshare/internal/store"
	"github.com/grvbrk/clipshare/internal/utils"
)

// AnalyticsVideoHandler records and reads share page views and completions.
// Only the presence of an id is checked; repeated calls count every time.
type AnalyticsVideoHandler struct {
	VideoStore store.VideoStore
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
}

func NewAnalyticsVideoHandler(videoStore store.VideoStore, m *metrics.Metrics, logger logrus.FieldLogger) *AnalyticsVideoHandler {
	return &AnalyticsVideoHandler{
		VideoStore: videoStore,
		Metrics:    m,
		Logger:     logger,
	}
}

type analyticsRequest struct {
	ID string `json:"id"`
}

func (ah *AnalyticsVideoHandler) idFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req analyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ah.Logger.WithError(err).Warn("Error decoding analytics request body")
		utils.WriteError(w, utils.NewValidationError("Invalid request body"), "Internal Error")
		return "", false
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		utils.WriteError(w, utils.NewValidationError("Missing ID"), "Internal Error")
		return "", false
	}
	return id, true
}

func (ah *AnalyticsVideoHandler) idFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		utils.WriteError(w, utils.NewValidationError("Missing ID"), "Internal Error")
		return "", false
	}
	return id, true
}

func (ah *AnalyticsVideoHandler) HandlerRecordView(w http.ResponseWriter, r *http.Request) {
	id, ok := ah.idFromBody(w, r)
	if !ok {
		return
	}

	views, err := ah.VideoStore.IncrementViews(r.Context(), id)
	if err != nil {
		ah.Logger.WithError(err).WithField("video.id", id).Error("Error incrementing views")
		ah.Metrics.RecordStoreError("increment_views")
		utils.WriteError(w, err, "Internal Error")
		return
	}

	ah.Metrics.RecordView()
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"views": views})
}

func (ah *AnalyticsVideoHandler) HandlerGetViews(w http.ResponseWriter, r *http.Request) {
	id, ok := ah.idFromQuery(w, r)
	if !ok {
		return
	}

	views, err := ah.VideoStore.GetViews(r.Context(), id)
	if err != nil {
		ah.Logger.WithError(err).WithField("video.id", id).Error("Error getting views")
		ah.Metrics.RecordStoreError("get_views")
		utils.WriteError(w, err, "Internal Error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"views": views})
}

func (ah *AnalyticsVideoHandler) HandlerRecordCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := ah.idFromBody(w, r)
	if !ok {
		return
	}

	if _, err := ah.VideoStore.IncrementCompletions(r.Context(), id); err != nil {
		ah.Logger.WithError(err).WithField("video.id", id).Error("Error incrementing completions")
		ah.Metrics.RecordStoreError("increment_completions")
		utils.WriteError(w, err, "Internal Error")
		return
	}

	ah.Metrics.RecordCompletion()
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"success": true})
}

func (ah *AnalyticsVideoHandler) HandlerGetCompletions(w http.ResponseWriter, r *http.Request) {
	id, ok := ah.idFromQuery(w, r)
	if !ok {
		return
	}

	completions, err := ah.VideoStore.GetCompletions(r.Context(), id)
	if err != nil {
		ah.Logger.WithError(err).WithField("video.id", id).Error("Error getting completions")
		ah.Metrics.RecordStoreError("get_completions")
		utils.WriteError(w, err, "Internal Error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"completions": completions})
}
