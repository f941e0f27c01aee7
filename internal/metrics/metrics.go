// Package metrics exposes prometheus instrumentation for the mini-app
// shell: backend call outcomes, poller activity, telemetry drops, and HTTP
// serving metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing,
// so wiring stays optional in tests.
type Metrics struct {
	registry *prometheus.Registry

	apiCalls       *prometheus.CounterVec
	pollTicks      prometheus.Counter
	telemetryDrops prometheus.Counter

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniapp_backend_calls_total",
			Help: "Backend API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		pollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniapp_poll_ticks_total",
			Help: "Status poller ticks.",
		}),
		telemetryDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniapp_telemetry_dropped_total",
			Help: "Telemetry events dropped because the queue was full.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniapp_http_requests_total",
			Help: "HTTP requests served by the shell.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "miniapp_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miniapp_http_in_flight_requests",
			Help: "HTTP requests currently being served.",
		}),
	}

	registry.MustRegister(
		m.apiCalls, m.pollTicks, m.telemetryDrops,
		m.httpRequests, m.httpDuration, m.inFlight,
	)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAPICall counts one backend call by operation and outcome.
func (m *Metrics) RecordAPICall(operation string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.apiCalls.WithLabelValues(operation, outcome).Inc()
}

// RecordPollTick counts one status poller tick.
func (m *Metrics) RecordPollTick() {
	if m == nil {
		return
	}
	m.pollTicks.Inc()
}

// RecordTelemetryDrop counts one dropped telemetry event.
func (m *Metrics) RecordTelemetryDrop() {
	if m == nil {
		return
	}
	m.telemetryDrops.Inc()
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementInFlight marks a request as in flight.
func (m *Metrics) IncrementInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// DecrementInFlight marks a request as finished.
func (m *Metrics) DecrementInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
