package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	Aggregations     *prometheus.CounterVec
	AggregationTime  prometheus.Histogram
	ActiveSessions   prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skycast_upstream_requests_total",
				Help: "Outbound provider requests by provider, endpoint and outcome",
			},
			[]string{"provider", "endpoint", "outcome"},
		),
		UpstreamLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skycast_upstream_duration_seconds",
				Help:    "Outbound provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "endpoint"},
		),
		Aggregations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skycast_aggregations_total",
				Help: "Dashboard aggregations by outcome",
			},
			[]string{"outcome"},
		),
		AggregationTime: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skycast_aggregation_duration_seconds",
				Help:    "End-to-end aggregation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "skycast_active_sessions",
				Help: "Dashboard sessions currently held in memory",
			},
		),
	}
}

// ObserveUpstream records one provider call.
func (m *Metrics) ObserveUpstream(provider, endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(provider, endpoint, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(provider, endpoint).Observe(seconds)
}

// ObserveAggregation records one aggregation run.
func (m *Metrics) ObserveAggregation(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Aggregations.WithLabelValues(outcome).Inc()
	m.AggregationTime.Observe(seconds)
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
