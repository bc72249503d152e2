package domain

import "time"

// Order status constants. Successfully placed orders stay in "pending";
// nothing promotes them to "completed" after payment, and downstream
// consumers expect that.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusFailed    = "failed"
)

// Order is a customer order together with its line items. An order and its
// lines share a lifecycle: they are created atomically and lines are
// cascade-deleted with the order.
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `json:"status"`
	Lines       []OrderLine `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OrderLine is one product+quantity entry within an order. PriceAtPurchase is
// the catalog price snapshotted at validation time and is immutable afterward,
// even if the catalog price later changes.
type OrderLine struct {
	ID              string  `json:"id"`
	OrderID         string  `json:"order_id"`
	ProductID       string  `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// LineTotal returns the total for this line at its snapshotted price.
func (l *OrderLine) LineTotal() float64 {
	return l.PriceAtPurchase * float64(l.Quantity)
}
