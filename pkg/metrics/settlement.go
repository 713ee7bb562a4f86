package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records outcomes of checkout settlement attempts.
type SettlementMetrics struct {
	duration  *prometheus.HistogramVec
	committed *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of settlement confirmations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	committed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_committed_total",
		Help: "Orders committed per payment provider.",
	}, []string{"provider"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_failed_total",
		Help: "Settlement attempts that surfaced a failure, by reason.",
	}, []string{"provider", "reason"})
	reg.MustRegister(duration, committed, failed)
	return &SettlementMetrics{
		duration:  duration,
		committed: committed,
		failed:    failed,
	}
}

// ObserveDuration records the confirmation duration for the provider.
func (m *SettlementMetrics) ObserveDuration(provider string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(provider)).Observe(d.Seconds())
}

// IncCommitted increments the committed counter for the provider.
func (m *SettlementMetrics) IncCommitted(provider string) {
	if m == nil || m.committed == nil {
		return
	}
	m.committed.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncFailed increments the failure counter for the provider and reason.
func (m *SettlementMetrics) IncFailed(provider, reason string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(provider), normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
