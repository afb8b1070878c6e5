// Package metrics holds the registry's prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private prometheus registry so several instances can live
// in one process (tests, the mcp command).
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	requests    *prometheus.CounterVec
}

// New creates and registers the collectors. Go runtime and process
// collectors are included.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "command_registry_invocations_total",
				Help: "Invocation rounds by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "command_registry_invocation_duration_seconds",
				Help:    "Duration of invocation rounds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "command_registry_requests_total",
				Help: "Protocol requests by method and success",
			},
			[]string{"method", "ok"},
		),
	}
	m.registry.MustRegister(
		m.invocations,
		m.duration,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveInvocation records one invocation round. Failed rounds use the
// outcome "error".
func (m *Metrics) ObserveInvocation(outcome string, elapsed time.Duration) {
	m.invocations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveRequest records one dispatched request.
func (m *Metrics) ObserveRequest(method string, ok bool) {
	m.requests.WithLabelValues(method, strconv.FormatBool(ok)).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and gatherers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
