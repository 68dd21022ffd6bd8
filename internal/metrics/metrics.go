package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service on a private registry.
// All recording methods are no-ops on a nil *Metrics.
type Metrics struct {
	LockOperationsTotal             *prometheus.CounterVec
	LocksReclaimedTotal             *prometheus.CounterVec
	GuardedOperationDurationSeconds *prometheus.HistogramVec
	HTTPRequestsTotal               *prometheus.CounterVec
	HTTPRequestDurationSeconds      *prometheus.HistogramVec

	registry *prometheus.Registry
}

func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.LockOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_operations_total",
			Help:      "Lock operations by operation and outcome",
		},
		[]string{"operation", "status"},
	)
	m.LocksReclaimedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locks_reclaimed_total",
			Help:      "Lock entries flipped inactive without an explicit release",
		},
		[]string{"path"},
	)
	m.GuardedOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "guarded_operation_duration_seconds",
			Help:      "Time spent inside guarded operations, lock held",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"resource_type", "outcome"},
	)
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	m.registry.MustRegister(
		m.LockOperationsTotal,
		m.LocksReclaimedTotal,
		m.GuardedOperationDurationSeconds,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the private registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) LockOperation(operation, status string) {
	if m == nil {
		return
	}
	m.LockOperationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) Reclaimed(path string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.LocksReclaimedTotal.WithLabelValues(path).Add(float64(n))
}

func (m *Metrics) ObserveGuarded(resourceType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GuardedOperationDurationSeconds.WithLabelValues(resourceType, outcome).Observe(d.Seconds())
}

func (m *Metrics) HTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, path).Observe(d.Seconds())
}
