package upload

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsPrefix = "dcctl_upload_"

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
)

type Metrics struct {
	chunks        *prometheus.CounterVec
	bytes         *prometheus.CounterVec
	chunkDuration *prometheus.HistogramVec
	uploads       *prometheus.CounterVec
}

// NewMetrics registers the upload metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "chunks_total",
			Help: "Number of chunk requests grouped by destination and outcome",
		}, []string{"destination", "outcome"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "bytes_total",
			Help: "Number of bytes accepted by the backend grouped by destination",
		}, []string{"destination"}),
		chunkDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricsPrefix + "chunk_duration_seconds",
			Help:    "Time taken by a single chunk request",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"destination"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: MetricsPrefix + "files_total",
			Help: "Number of file uploads grouped by destination and outcome",
		}, []string{"destination", "outcome"}),
	}
}

func (m *Metrics) recordChunk(destination string, size int64, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.chunkDuration.WithLabelValues(destination).Observe(elapsed.Seconds())
	if err != nil {
		m.chunks.WithLabelValues(destination, outcomeFailed).Inc()
		return
	}
	m.chunks.WithLabelValues(destination, outcomeSucceeded).Inc()
	m.bytes.WithLabelValues(destination).Add(float64(size))
}

func (m *Metrics) recordUpload(destination string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSucceeded
	if err != nil {
		outcome = outcomeFailed
	}
	m.uploads.WithLabelValues(destination, outcome).Inc()
}
