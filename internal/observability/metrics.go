package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simgate/sim-gateway/internal/domain"
)

// Metrics holds the Prometheus collectors of the gateway on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	sessions        *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	busySlots       prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpErrors      *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ussd_sessions_total",
			Help: "USSD sessions by operator and failure kind",
		}, []string{"operator", "failure_kind"}),
		sessionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ussd_session_duration_seconds",
			Help:    "Wall time of USSD sessions",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"operator"}),
		busySlots: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sim_slots_busy",
			Help: "Slots currently carrying a session",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP requests that ended with a domain error",
		}, []string{"method", "route", "code"}),
	}
}

// RecordSession counts a finished session.
func (m *Metrics) RecordSession(outcome *domain.UssdOutcome) {
	if m == nil || outcome == nil {
		return
	}
	m.sessions.WithLabelValues(outcome.Operator, string(outcome.FailureKind)).Inc()
	if d := outcome.Duration(); d > 0 {
		m.sessionDuration.WithLabelValues(outcome.Operator).Observe(d.Seconds())
	}
}

// SetBusySlots publishes the number of busy slots.
func (m *Metrics) SetBusySlots(n int) {
	if m == nil {
		return
	}
	m.busySlots.Set(float64(n))
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, route, code).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
