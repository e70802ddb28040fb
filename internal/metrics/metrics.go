package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for uploads and playback analytics.
type Metrics struct {
	uploadsTotal     *prometheus.CounterVec
	uploadBytes      prometheus.Histogram
	viewsTotal       prometheus.Counter
	completionsTotal prometheus.Counter
	storeErrorsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipshare_uploads_total",
			Help: "Total number of upload attempts",
		}, []string{"status"}),

		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clipshare_upload_bytes",
			Help:    "Size of stored recordings in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 9),
		}),

		viewsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipshare_views_total",
			Help: "Total number of recorded share page views",
		}),

		completionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipshare_completions_total",
			Help: "Total number of recorded full playbacks",
		}),

		storeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipshare_store_errors_total",
			Help: "Total number of failed store operations",
		}, []string{"op"}),
	}

	reg.MustRegister(m.uploadsTotal, m.uploadBytes, m.viewsTotal, m.completionsTotal, m.storeErrorsTotal)

	return m
}

// RecordUpload records an upload outcome ("success", "client_error", "error").
func (m *Metrics) RecordUpload(status string, size int64) {
	m.uploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.uploadBytes.Observe(float64(size))
	}
}

func (m *Metrics) RecordView() {
	m.viewsTotal.Inc()
}

func (m *Metrics) RecordCompletion() {
	m.completionsTotal.Inc()
}

func (m *Metrics) RecordStoreError(op string) {
	m.storeErrorsTotal.WithLabelValues(op).Inc()
}
