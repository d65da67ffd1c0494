package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gatekeeper's Prometheus collectors.  All methods are
// safe on a nil receiver so components can run without metrics in tests.
type Metrics struct {
	Decisions        *prometheus.CounterVec
	DecideLatency    prometheus.Histogram
	LookupFailures   prometheus.Counter
	LogWriteFailures prometheus.Counter
	RateLimited      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_access_decisions_total",
			Help: "Gate access decisions by channel, outcome and reason",
		}, []string{"channel", "outcome", "reason"}),

		DecideLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_access_decide_duration_seconds",
			Help:    "Duration of a gate decision including lookup and log write",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		LookupFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_tenant_lookup_failures_total",
			Help: "Tenant lookups that failed for infrastructure reasons",
		}),

		LogWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_access_log_write_failures_total",
			Help: "Access log entries that could not be persisted",
		}),

		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"transport"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatekeeper_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) IncrementDecision(channel, outcome, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(channel, outcome, reason).Inc()
	}
}

func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementLookupFailure() {
	if m != nil {
		m.LookupFailures.Inc()
	}
}

func (m *Metrics) IncrementLogWriteFailure() {
	if m != nil {
		m.LogWriteFailures.Inc()
	}
}

func (m *Metrics) IncrementRateLimited(transport string) {
	if m != nil {
		m.RateLimited.WithLabelValues(transport).Inc()
	}
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, method, status).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
	}
}
