package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/blob"
	"github.com/grvbrk/clipshare/internal/metrics"
	"github.com/grvbrk/clipshare/internal/store"
	"github.com/grvbrk/clipshare/internal/trim"
	"github.com/grvbrk/clipshare/internal/utils"
)

const (
	defaultContentType = "video/webm"
	multipartMemory    = 32 << 20
)

type UploadHandler struct {
	VideoStore     store.VideoStore
	BlobStore      blob.BlobStore
	Transcoder     trim.Transcoder
	Metrics        *metrics.Metrics
	Logger         logrus.FieldLogger
	ShareURL       func(id string) string
	MaxUploadBytes int64
	NewID          func() string
}

func NewUploadHandler(
	videoStore store.VideoStore,
	blobStore blob.BlobStore,
	transcoder trim.Transcoder,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
	shareURL func(id string) string,
	maxUploadBytes int64,
) *UploadHandler {
	return &UploadHandler{
		VideoStore:     videoStore,
		BlobStore:      blobStore,
		Transcoder:     transcoder,
		Metrics:        m,
		Logger:         logger,
		ShareURL:       shareURL,
		MaxUploadBytes: maxUploadBytes,
		NewID:          uuid.NewString,
	}
}

// HandlerUploadVideo stores the multipart "file" field, optionally trimmed to
// the "start"/"end" range in seconds, and records its metadata. A stored
// payload is not removed if the metadata write fails afterwards.
func (uh *UploadHandler) HandlerUploadVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, uh.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			uh.Logger.WithField("limit", tooLarge.Limit).Warn("upload rejected: body too large")
			uh.Metrics.RecordUpload("client_error", 0)
			utils.WriteJSON(w, http.StatusRequestEntityTooLarge, utils.Envelope{"error": "File too large"})
			return
		}
		uh.Logger.WithError(err).Warn("upload rejected: unreadable multipart form")
		uh.clientError(w, utils.NewValidationError("No file uploaded"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		uh.Logger.WithError(err).Warn("upload rejected: file field missing")
		uh.clientError(w, utils.NewValidationError("No file uploaded"))
		return
	}
	defer file.Close()

	var payload io.Reader = file

	start, end := r.FormValue("start"), r.FormValue("end")
	if start != "" || end != "" {
		rng, err := trim.ParseRange(start, end)
		if err != nil {
			uh.Logger.WithError(err).Warn("upload rejected: bad trim range")
			uh.clientError(w, utils.NewValidationError("Invalid trim range: %v", err))
			return
		}

		l := uh.Logger.WithFields(logrus.Fields{"trim.start": rng.Start, "trim.end": rng.End})
		trimmed, err := uh.Transcoder.Trim(r.Context(), file, rng, func(percent int) {
			l.WithField("trim.progress", percent).Debug("trimming upload")
		})
		if err != nil {
			l.WithError(err).Error("failed to trim upload")
			uh.serverError(w)
			return
		}
		defer trimmed.Close()

		payload = trimmed
	}

	id := uh.NewID()
	l := uh.Logger.WithField("video.id", id)

	counter := &countingReader{r: payload}
	videoURL, err := uh.BlobStore.Put(r.Context(), blob.ObjectName(id), counter, contentType(header.Header.Get("Content-Type")))
	if err != nil {
		l.WithError(err).Error("failed to store upload")
		uh.serverError(w)
		return
	}

	video, err := uh.VideoStore.SaveMetadata(r.Context(), id, videoURL)
	if err != nil {
		l.WithError(err).WithField("video.url", videoURL).Error("failed to save metadata, stored file is orphaned")
		uh.Metrics.RecordStoreError("save_metadata")
		uh.serverError(w)
		return
	}

	uh.Metrics.RecordUpload("success", counter.n)
	l.WithFields(logrus.Fields{
		"video.url":        videoURL,
		"video.size":       counter.n,
		"video.created_at": video.Created(),
	}).Info("upload stored")

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{
		"success":  true,
		"id":       id,
		"url":      uh.ShareURL(id),
		"videoUrl": videoURL,
	})
}

func (uh *UploadHandler) clientError(w http.ResponseWriter, err error) {
	uh.Metrics.RecordUpload("client_error", 0)
	utils.WriteError(w, err, "Upload failed")
}

func (uh *UploadHandler) serverError(w http.ResponseWriter) {
	uh.Metrics.RecordUpload("error", 0)
	utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Upload failed"})
}

func contentType(declared string) string {
	if strings.HasPrefix(declared, "video/") {
		return declared
	}
	return defaultContentType
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
