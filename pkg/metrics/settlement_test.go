package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSettlementMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSettlementMetrics(reg)

	metrics.ObserveDuration("stripe", 250*time.Millisecond)
	metrics.IncCommitted("stripe")
	metrics.IncFailed("stripe", "insufficient_stock")
	metrics.IncFailed("", "")

	if got := testutil.ToFloat64(metrics.committed.WithLabelValues("stripe")); got != 1 {
		t.Fatalf("expected committed=1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.failed.WithLabelValues("stripe", "insufficient_stock")); got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.failed.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("expected empty labels to normalize, got %f", got)
	}
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var metrics *SettlementMetrics
	metrics.IncCommitted("stripe")
	metrics.IncFailed("stripe", "x")
	metrics.ObserveDuration("stripe", time.Second)

	empty := NewSettlementMetrics(nil)
	empty.IncCommitted("stripe")
}
