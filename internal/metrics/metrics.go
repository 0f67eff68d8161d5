package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssignDuration tracks the latency of the full assign workflow.
	AssignDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coupon_assign_duration_seconds",
			Help:    "Duration of coupon assign workflows in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"status"}, // success or failed
	)

	// CouponsIssued counts coupons actually created (idempotent re-assigns
	// for the same customer and month do not increment).
	CouponsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupons_issued_total",
		Help: "Number of coupon codes attached to monthly rules",
	})

	// RulesPruned counts expired discount rules deleted by the prune job.
	RulesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_rules_pruned_total",
		Help: "Number of expired discount rules deleted",
	})
)

// RecordAssignDuration records one assign workflow observation.
func RecordAssignDuration(status string, seconds float64) {
	AssignDuration.WithLabelValues(status).Observe(seconds)
}
