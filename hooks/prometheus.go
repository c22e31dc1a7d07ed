package hooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exports pipeline observations to a Prometheus registry.
type PrometheusMetrics struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	processed     prometheus.Counter
}

// NewPrometheusMetrics registers the pipeline metrics with reg.  Pass
// prometheus.DefaultRegisterer for the process-global registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "image_service",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "image_service",
			Name:      "stage_errors_total",
			Help:      "Errors per pipeline stage.",
		}, []string{"stage"}),
		processed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "image_service",
			Name:      "documents_processed_total",
			Help:      "Successfully processed documents.",
		}),
	}
}

func (m *PrometheusMetrics) RecordStageDuration(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RecordProcessed() { m.processed.Inc() }

func (m *PrometheusMetrics) RecordError(stage string) {
	m.stageErrors.WithLabelValues(stage).Inc()
}
