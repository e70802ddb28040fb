package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grvbrk/clipshare/internal/metrics"
	"github.com/grvbrk/clipshare/internal/store"
)

func newTestHandler(t *testing.T) (*AnalyticsVideoHandler, *prometheus.Registry) {
	t.Helper()

	l := logrus.New()
	l.SetOutput(io.Discard)

	vs, err := store.NewFileVideoStore(filepath.Join(t.TempDir(), "db.json"), l)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewAnalyticsVideoHandler(vs, metrics.New(reg), l), reg
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analytics", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h(rr, req)
	return rr
}

func get(h http.HandlerFunc, query string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/analytics"+query, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHandlerRecordView(t *testing.T) {
	h, _ := newTestHandler(t)

	for want := 1; want <= 3; want++ {
		rr := post(h.HandlerRecordView, `{"id":"abc"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.EqualValues(t, want, decode(t, rr)["views"])
	}

	rr := get(h.HandlerGetViews, "?id=abc")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 3, decode(t, rr)["views"])
}

func TestHandlerGetViews_Unknown(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := get(h.HandlerGetViews, "?id=never-seen")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, decode(t, rr)["views"])
}

func TestHandlerRecordCompletion(t *testing.T) {
	h, reg := newTestHandler(t)

	rr := post(h.HandlerRecordCompletion, `{"id":"abc"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["success"])

	post(h.HandlerRecordCompletion, `{"id":"abc"}`)

	rr = get(h.HandlerGetCompletions, "?id=abc")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 2, decode(t, rr)["completions"])

	n, err := testutil.GatherAndCount(reg, "clipshare_completions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandlers_MissingID(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		rr   *httptest.ResponseRecorder
	}{
		{"record view empty body", post(h.HandlerRecordView, `{}`)},
		{"record view blank id", post(h.HandlerRecordView, `{"id":"  "}`)},
		{"record completion", post(h.HandlerRecordCompletion, `{}`)},
		{"get views", get(h.HandlerGetViews, "")},
		{"get completions", get(h.HandlerGetCompletions, "?id=")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, tt.rr.Code)
			assert.Equal(t, "Missing ID", decode(t, tt.rr)["error"])
		})
	}
}

func TestHandlerRecordView_MalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := post(h.HandlerRecordView, `{"id":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid request body", decode(t, rr)["error"])
}

func TestHandlerRecordView_Concurrent(t *testing.T) {
	h, _ := newTestHandler(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			post(h.HandlerRecordView, `{"id":"hot"}`)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 20, decode(t, get(h.HandlerGetViews, "?id=hot"))["views"])
}

type failingStore struct {
	store.VideoStore
}

func (failingStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	return 0, &store.StorageError{Backend: "test", Op: "increment_views", Err: errors.New("connection refused")}
}

func (failingStore) GetViews(ctx context.Context, id string) (int64, error) {
	return 0, &store.StorageError{Backend: "test", Op: "get_views", Err: errors.New("connection refused")}
}

func TestHandlers_StoreFailure(t *testing.T) {
	h, reg := newTestHandler(t)
	h.VideoStore = failingStore{}

	rr := post(h.HandlerRecordView, `{"id":"abc"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Error", decode(t, rr)["error"])

	rr = get(h.HandlerGetViews, "?id=abc")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Error", decode(t, rr)["error"])

	n, err := testutil.GatherAndCount(reg, "clipshare_store_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
