package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/store"
	"github.com/grvbrk/clipshare/internal/utils"
)

type VideoHandler struct {
	VideoStore store.VideoStore
	Logger     logrus.FieldLogger
}

func NewVideoHandler(videoStore store.VideoStore, logger logrus.FieldLogger) *VideoHandler {
	return &VideoHandler{
		VideoStore: videoStore,
		Logger:     logger,
	}
}

func (vh *VideoHandler) HandlerGetVideoByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		vh.Logger.Warn("id parameter is missing")
		utils.WriteError(w, utils.NewValidationError("Missing ID"), "Internal Error")
		return
	}

	video, err := vh.VideoStore.GetMetadata(r.Context(), id)
	if err != nil {
		vh.Logger.WithError(err).WithField("video.id", id).Error("failed to get video from store")
		utils.WriteError(w, err, "Internal Error")
		return
	}

	if video == nil {
		utils.WriteError(w, utils.NewNotFoundError("Video not found"), "Internal Error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{
		"id":          video.ID,
		"url":         video.URL,
		"createdAt":   video.CreatedAt,
		"views":       video.Views,
		"completions": video.Completions,
	})
}
