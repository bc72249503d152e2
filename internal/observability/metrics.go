package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Placement outcome labels. Exactly one outcome is recorded per PlaceOrder
// invocation, success or failure.
const (
	OutcomeSuccess           = "success"
	OutcomeProductNotFound   = "product_not_found"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomePaymentDeclined   = "payment_declined"
	OutcomePersistenceError  = "persistence_error"
	OutcomeInternalError     = "internal_error"
)

// Order terminal-status labels for orders_total. The values are fixed;
// dashboards key on them.
const (
	OrderStatusSuccess = "success"
	OrderStatusFailed  = "failed"
	OrderStatusError   = "error"
)

var (
	placementRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_placement_requests_total",
			Help: "Order placement attempts by outcome",
		},
		[]string{"outcome"},
	)

	placementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_placement_duration_seconds",
			Help:    "End-to-end order placement duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	ordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Total orders by terminal status",
		},
		[]string{"status"},
	)

	revenueTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "revenue_total_usd",
			Help: "Cumulative revenue in USD from successful orders",
		},
	)

	activeUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_users_total",
			Help: "Active users",
		},
	)
)

// ObservePlacement records one placement attempt: outcome counter plus
// duration observation.
func ObservePlacement(outcome string, elapsed time.Duration) {
	placementRequests.WithLabelValues(outcome).Inc()
	placementDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordOrder increments the terminal-status order counter.
func RecordOrder(status string) {
	ordersTotal.WithLabelValues(status).Inc()
}

// AddRevenue adds a successful order's total to cumulative revenue.
func AddRevenue(amount float64) {
	revenueTotal.Add(amount)
}

// IncActiveUsers bumps the active users gauge, once per successful order.
func IncActiveUsers() {
	activeUsers.Inc()
}

// PlacementRequests returns the outcome counter for test assertions.
func PlacementRequests(outcome string) prometheus.Counter {
	return placementRequests.WithLabelValues(outcome)
}
