package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grvbrk/clipshare/internal/app"
	"github.com/grvbrk/clipshare/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:               8080,
			PublicBaseURL:      "https://clips.example",
			AllowedOrigins:     []string{"*"},
			RateLimitPerMinute: 1000,
			MaxUploadBytes:     1 << 20,
		},
		Store: config.StoreConfig{Backend: config.StoreFile, FilePath: filepath.Join(dir, "db.json")},
		Blob:  config.BlobConfig{Backend: config.BlobLocal, UploadDir: filepath.Join(dir, "uploads"), UploadURLPrefix: "/uploads"},
		Trim:  config.TrimConfig{FFmpegPath: "ffmpeg"},
		Log:   config.LogConfig{Level: "info", Format: "text"},
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	a, err := app.NewApplicationWithLogger(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(srv.Close)
	return srv
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func upload(t *testing.T, srv *httptest.Server, payload []byte) map[string]interface{} {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "recording.webm")
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeJSON(t, resp)
}

func postID(t *testing.T, url, id string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(`{"id":"`+id+`"}`))
	require.NoError(t, err)
	return resp
}

func TestUploadShareAndAnalytics(t *testing.T) {
	srv := newTestServer(t)

	uploaded := upload(t, srv, []byte("webm-payload"))
	id := uploaded["id"].(string)
	videoURL := uploaded["videoUrl"].(string)
	assert.Equal(t, "https://clips.example/share/"+id, uploaded["url"])

	resp, err := http.Get(srv.URL + "/video/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, videoURL, decodeJSON(t, resp)["url"])

	resp, err = http.Get(srv.URL + videoURL)
	require.NoError(t, err)
	served, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "webm-payload", string(served))

	for i := 0; i < 3; i++ {
		resp := postID(t, srv.URL+"/analytics/view", id)
		assert.EqualValues(t, i+1, decodeJSON(t, resp)["views"])
	}

	resp, err = http.Get(srv.URL + "/analytics/view?id=" + id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, decodeJSON(t, resp)["views"])

	resp = postID(t, srv.URL+"/analytics/complete", id)
	assert.Equal(t, true, decodeJSON(t, resp)["success"])

	resp, err = http.Get(srv.URL + "/analytics/complete?id=" + id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, decodeJSON(t, resp)["completions"])

	resp, err = http.Get(srv.URL + "/video/" + id)
	require.NoError(t, err)
	got := decodeJSON(t, resp)
	assert.EqualValues(t, 3, got["views"])
	assert.EqualValues(t, 1, got["completions"])
}

func TestUnknownVideo(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/video/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Video not found", decodeJSON(t, resp)["error"])

	resp, err = http.Get(srv.URL + "/analytics/view?id=nope")
	require.NoError(t, err)
	assert.EqualValues(t, 0, decodeJSON(t, resp)["views"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decodeJSON(t, resp)["status"])

	upload(t, srv, []byte("x"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `clipshare_uploads_total{status="success"} 1`)
}
