package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the gateway. A nil *Metrics
// is valid and records nothing, which keeps test wiring light.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
	CacheEventsTotal *prometheus.CounterVec
	ProviderAttempts *prometheus.CounterVec
}

// NewMetrics creates and registers all gateway metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockmcp_requests_total",
			Help: "Total tool invocations by tool name and outcome",
		}, []string{"tool", "status"}),

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockmcp_request_duration_seconds",
			Help:    "End-to-end tool invocation latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"tool"}),

		CacheEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockmcp_cache_events_total",
			Help: "Response cache events: hit, miss, coalesced, tier_hit, evicted, expired",
		}, []string{"event"}),

		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stockmcp_provider_attempts_total",
			Help: "Upstream fetch attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
}

// RecordRequest counts one completed tool invocation.
func (m *Metrics) RecordRequest(tool, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(tool, status).Inc()
	m.RequestLatency.WithLabelValues(tool).Observe(seconds)
}

// RecordCacheEvent counts one response-cache event.
func (m *Metrics) RecordCacheEvent(event string) {
	if m == nil {
		return
	}
	m.CacheEventsTotal.WithLabelValues(event).Inc()
}

// RecordProviderAttempt counts one upstream attempt.
func (m *Metrics) RecordProviderAttempt(operation, outcome string) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(operation, outcome).Inc()
}
