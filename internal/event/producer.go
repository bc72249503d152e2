package event

import (
	"context"
	"log/slog"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/domain"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/kafka"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/logger"
)

const (
	// TopicOrders carries order lifecycle events.
	TopicOrders = "orders.events"

	// EventOrderPlaced is emitted after an order has been fully placed.
	EventOrderPlaced = "order.placed"

	sourceService = "ecommerce-backend"
)

// Publisher is the minimal surface the order service needs for emitting
// domain events. Satisfied by pkg/kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// OrderPlaced is the payload of an order.placed event.
type OrderPlaced struct {
	OrderID     string            `json:"order_id"`
	UserID      string            `json:"user_id"`
	TotalAmount float64           `json:"total_amount"`
	Status      string            `json:"status"`
	Items       []OrderPlacedItem `json:"items"`
}

// OrderPlacedItem is one line of an order.placed payload.
type OrderPlacedItem struct {
	ProductID       string  `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// OrderEvents publishes order lifecycle events. Publishing is best-effort:
// failures are logged and never fail the order.
type OrderEvents struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewOrderEvents creates an order event publisher. A nil publisher disables
// publishing, for deployments without Kafka.
func NewOrderEvents(publisher Publisher, log *slog.Logger) *OrderEvents {
	return &OrderEvents{publisher: publisher, logger: log}
}

// OrderPlaced emits an order.placed event for a successfully placed order.
func (e *OrderEvents) OrderPlaced(ctx context.Context, o *domain.Order) {
	if e.publisher == nil {
		return
	}

	payload := OrderPlaced{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		Items:       make([]OrderPlacedItem, 0, len(o.Lines)),
	}
	for _, line := range o.Lines {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.PriceAtPurchase,
		})
	}

	evt, err := kafka.NewEvent(EventOrderPlaced, o.ID, "order", sourceService, payload)
	if err != nil {
		e.logger.ErrorContext(ctx, "build order.placed event",
			slog.String("order_id", o.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := e.publisher.Publish(ctx, TopicOrders, evt); err != nil {
		e.logger.ErrorContext(ctx, "publish order.placed event",
			slog.String("order_id", o.ID),
			slog.String("error", err.Error()),
		)
	}
}
