package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Envelope{"views": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, float64(3), decode(t, rec)["views"])
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", NewValidationError("Missing ID"), http.StatusBadRequest, "Missing ID"},
		{"wrapped validation", fmt.Errorf("upload: %w", NewValidationError("No file uploaded")), http.StatusBadRequest, "No file uploaded"},
		{"not found", NewNotFoundError("Video not found"), http.StatusNotFound, "Video not found"},
		{"other", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "Internal Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			status := WriteError(rec, tt.err, "Internal Error")

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, decode(t, rec)["error"])
		})
	}
}

func captureLogs(t *testing.T) *test.Hook {
	t.Helper()
	l, hook := test.NewNullLogger()
	SetLogger(l)
	t.Cleanup(func() { SetLogger(logrus.StandardLogger()) })
	return hook
}

func TestWriteJSON_MarshalFailureIsLogged(t *testing.T) {
	hook := captureLogs(t)

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, Envelope{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "error marshaling JSON", entry.Message)
	assert.Contains(t, entry.Data, logrus.ErrorKey)
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteJSON_WriteFailureIsLogged(t *testing.T) {
	hook := captureLogs(t)

	WriteJSON(brokenWriter{httptest.NewRecorder()}, http.StatusOK, Envelope{"views": 1})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "error writing JSON response", entry.Message)
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "broken pipe")
}
