// File: internal/observability/metrics.go
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "smartfill"

// Metrics holds the fill-run Prometheus metrics.
type Metrics struct {
	Runs           *prometheus.CounterVec
	Fields         *prometheus.CounterVec
	OracleRequests *prometheus.CounterVec
	OracleDuration prometheus.Histogram
	RunDuration    prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics registers the metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers the metrics on reg and serves them from gatherer.
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Fill runs by result (ok, busy, error).",
		}, []string{"result"}),
		Fields: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fields_total",
			Help:      "Fillable fields by outcome.",
		}, []string{"outcome"}),
		OracleRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "oracle_requests_total",
			Help:      "Oracle requests by result (ok, empty, error).",
		}, []string{"result"}),
		OracleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Latency of oracle requests.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete fill runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		gatherer: gatherer,
	}
}

// ObserveOracle records one oracle request.
func (m *Metrics) ObserveOracle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.OracleRequests.WithLabelValues(result).Inc()
	m.OracleDuration.Observe(d.Seconds())
}

// ObserveField records one field outcome.
func (m *Metrics) ObserveField(outcome string) {
	if m == nil {
		return
	}
	m.Fields.WithLabelValues(outcome).Inc()
}

// ObserveRun records one finished (or rejected) run.
func (m *Metrics) ObserveRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	if d > 0 {
		m.RunDuration.Observe(d.Seconds())
	}
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
