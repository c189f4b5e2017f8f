// Package observability exports request and connection metrics in the
// Prometheus exposition format.
package observability

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedPath is the path label used for requests no route matched, so
// arbitrary client paths cannot grow the label set.
const UnmatchedPath = "unmatched"

// Monitor records per-request and per-connection metrics on a private
// registry. A nil *Monitor is valid and records nothing.
type Monitor struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	connections prometheus.Gauge
	accepted    prometheus.Counter
}

// NewMonitor creates a monitor whose metric names are prefixed by namespace.
func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "inflight_connections",
			Help:      "Number of open client connections",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "accepted_connections_total",
			Help:      "Total number of accepted client connections",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.connections,
		m.accepted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one completed request.
func (m *Monitor) Observe(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if status == stdhttp.StatusNotFound {
		path = UnmatchedPath
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ConnOpened records an accepted connection.
func (m *Monitor) ConnOpened() {
	if m == nil {
		return
	}
	m.accepted.Inc()
	m.connections.Inc()
}

// ConnClosed records a closed connection.
func (m *Monitor) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Monitor) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() stdhttp.Handler {
	if m == nil {
		return stdhttp.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
