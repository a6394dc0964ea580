package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the booking runs.
type Metrics struct {
	// DaysPlannedTotal counts planned days by outcome
	// (booked, already_covered, unreachable, skipped, error).
	DaysPlannedTotal *prometheus.CounterVec

	// SegmentsBookedTotal counts issued segment bookings by status.
	SegmentsBookedTotal *prometheus.CounterVec

	// SeatSwitches observes the number of seat switches per planned day.
	SeatSwitches prometheus.Histogram

	// PlanDuration observes the time spent planning one day.
	PlanDuration prometheus.Histogram

	// APICallDuration observes reservation-service call latency.
	APICallDuration *prometheus.HistogramVec
}

// Day outcome labels.
const (
	OutcomeBooked         = "booked"
	OutcomeAlreadyCovered = "already_covered"
	OutcomeUnreachable    = "unreachable"
	OutcomeSkipped        = "skipped"
	OutcomeError          = "error"
)

// New creates and registers booking metrics under the namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		DaysPlannedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "days_planned_total",
				Help:      "Planned days by outcome",
			},
			[]string{"outcome"},
		),

		SegmentsBookedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "segments_booked_total",
				Help:      "Issued segment bookings by status",
			},
			[]string{"status"},
		),

		SeatSwitches: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "seat_switches",
				Help:      "Seat switches per planned day",
				Buckets:   []float64{0, 1, 2, 3, 5, 8},
			},
		),

		PlanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plan_duration_seconds",
				Help:      "Time spent planning one day",
				Buckets:   []float64{.0001, .001, .01, .1, 1},
			},
		),

		APICallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_call_duration_seconds",
				Help:      "Reservation service call latency",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
	}
}

// IncDay increments the day counter for an outcome.
func (m *Metrics) IncDay(outcome string) {
	m.DaysPlannedTotal.WithLabelValues(outcome).Inc()
}

// IncSegment increments the segment counter for a status.
func (m *Metrics) IncSegment(status string) {
	m.SegmentsBookedTotal.WithLabelValues(status).Inc()
}

// ObserveSwitches records the seat switches of one plan.
func (m *Metrics) ObserveSwitches(n int) {
	m.SeatSwitches.Observe(float64(n))
}

// ObservePlanDuration records planning time in seconds.
func (m *Metrics) ObservePlanDuration(seconds float64) {
	m.PlanDuration.Observe(seconds)
}

// ObserveAPICall records the latency of one service call.
func (m *Metrics) ObserveAPICall(endpoint string, seconds float64) {
	m.APICallDuration.WithLabelValues(endpoint).Observe(seconds)
}
