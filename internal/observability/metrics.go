package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_lookup"

// Metrics holds the Prometheus collectors for upstream calls and store operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec   // labels: client={geocode_forward,geocode_reverse,forecast,position}, outcome={success,error,not_found}
	UpstreamDuration *prometheus.HistogramVec // labels: client
	StoreOperations  *prometheus.CounterVec   // labels: operation, outcome={ready,failed,stale}
	StaleDropped     prometheus.Counter
	PersistErrors    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.StoreOperations,
		m.StaleDropped,
		m.PersistErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by client and outcome.",
		}, []string{"client", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"client"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Completed store operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		StaleDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_completions_dropped_total",
			Help:      "Operation completions ignored because a newer operation started.",
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Failed writes of the persisted state blob.",
		}),
	}
}

func (m *Metrics) ObserveUpstream(client, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(client, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(client).Observe(d.Seconds())
}

func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(operation, outcome).Inc()
	if outcome == "stale" {
		m.StaleDropped.Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.PersistErrors.Inc()
}
