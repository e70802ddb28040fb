package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordUpload("success", 1024)
	m.RecordUpload("client_error", 0)
	m.RecordView()
	m.RecordView()
	m.RecordCompletion()
	m.RecordStoreError("increment_views")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.uploadsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.uploadsTotal.WithLabelValues("client_error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.viewsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.completionsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeErrorsTotal.WithLabelValues("increment_views")))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP clipshare_views_total Total number of recorded share page views
# TYPE clipshare_views_total counter
clipshare_views_total 2
`), "clipshare_views_total")
	assert.NoError(t, err)
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
