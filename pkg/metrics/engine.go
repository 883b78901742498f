package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records outcomes and latencies of inventory engine operations.
type EngineMetrics struct {
	applyDuration *prometheus.HistogramVec
	reservations  *prometheus.CounterVec
	fulfillments  *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	applyDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_apply_duration_seconds",
		Help:    "Duration of atomic ledger apply operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservations_total",
		Help: "Reservation attempts by result.",
	}, []string{"result"})
	fulfillments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_fulfillments_total",
		Help: "Fulfillment and cancellation operations by result.",
	}, []string{"result"})
	reg.MustRegister(applyDuration, reservations, fulfillments)
	return &EngineMetrics{
		applyDuration: applyDuration,
		reservations:  reservations,
		fulfillments:  fulfillments,
	}
}

// ObserveApply records the duration of one ledger apply under the named operation.
func (m *EngineMetrics) ObserveApply(operation string, duration time.Duration) {
	if m == nil || m.applyDuration == nil {
		return
	}
	m.applyDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncReservation increments the reservation counter for the given result.
func (m *EngineMetrics) IncReservation(result string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncFulfillment increments the fulfillment counter for the given result.
func (m *EngineMetrics) IncFulfillment(result string) {
	if m == nil || m.fulfillments == nil {
		return
	}
	m.fulfillments.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
