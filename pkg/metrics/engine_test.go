package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)
	metrics.ObserveApply("reserve", 120*time.Millisecond)
	metrics.IncReservation("reserved")
	metrics.IncReservation("insufficient_stock")
	metrics.IncFulfillment("completed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "inventory_reservations_total", "result", "reserved"); err != nil {
		t.Fatalf("fetch reserved: %v", err)
	} else if got != 1 {
		t.Fatalf("expected reserved=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "inventory_reservations_total", "result", "insufficient_stock"); err != nil {
		t.Fatalf("fetch insufficient: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient_stock=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "inventory_fulfillments_total", "result", "completed"); err != nil {
		t.Fatalf("fetch completed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected completed=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "inventory_apply_duration_seconds", "operation", "reserve"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestEngineMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewEngineMetrics(nil)
	metrics.ObserveApply("reserve", time.Second)
	metrics.IncReservation("reserved")
	metrics.IncFulfillment("completed")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("histogram %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
