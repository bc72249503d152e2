package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/domain"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/event"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/observability"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/payment"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/repository"
	apperrors "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/errors"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/tracing"
)

// LineRequest is one requested product+quantity in an order draft.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// OrderService runs the order placement workflow and order reads.
type OrderService struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
	gateway payment.Gateway
	events  *event.OrderEvents
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// OrderServiceOption configures an OrderService.
type OrderServiceOption func(*OrderService)

// WithTracer overrides the tracer. Tests use an in-memory recorder.
func WithTracer(tracer trace.Tracer) OrderServiceOption {
	return func(s *OrderService) { s.tracer = tracer }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// NewOrderService wires the order workflow's collaborators.
func NewOrderService(
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	gateway payment.Gateway,
	events *event.OrderEvents,
	log *slog.Logger,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orders:  orders,
		catalog: catalog,
		gateway: gateway,
		events:  events,
		logger:  log,
		tracer:  tracing.Tracer("order-service"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// validatedLine pairs a draft line with the product snapshot taken at
// validation time.
type validatedLine struct {
	product  *domain.Product
	quantity int
}

// PlaceOrder runs the full placement workflow: validate the draft against the
// catalog, charge the payment gateway, persist the order atomically, then
// decrement inventory. On success the order is returned in status "pending".
//
// Every failure is one of the typed errors in the domain package. Exactly one
// placement outcome is recorded per call, panics included. Once payment has
// succeeded the workflow runs to a terminal state even if the caller's
// context is canceled.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, lines []LineRequest) (order *domain.Order, err error) {
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "create_order", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("order.item_count", len(lines)),
	))

	defer func() {
		if r := recover(); r != nil {
			err = &domain.UnexpectedError{Cause: fmt.Errorf("panic: %v", r)}
			order = nil
			observability.RecordOrder(observability.OrderStatusError)
			s.logger.ErrorContext(ctx, "panic during order placement",
				slog.String("user_id", userID),
				slog.Any("panic", r),
			)
		}

		outcome := outcomeFor(err)
		observability.ObservePlacement(outcome, time.Since(start))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.String("order.outcome", outcome))
		span.End()
	}()

	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	validated, total, err := s.validateProducts(ctx, span, lines)
	if err != nil {
		return nil, err
	}

	if err = s.processPayment(ctx, span, total); err != nil {
		return nil, err
	}

	// Payment has been taken. From here on the workflow must reach a
	// terminal state regardless of the caller's context.
	ctx = context.WithoutCancel(ctx)

	order, err = s.saveOrder(ctx, span, userID, validated, total)
	if err != nil {
		return nil, err
	}

	if err = s.updateInventory(ctx, span, order, validated); err != nil {
		return nil, err
	}

	span.AddEvent("order_created", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.Float64("order.total_amount", order.TotalAmount),
	))

	observability.RecordOrder(observability.OrderStatusSuccess)
	observability.AddRevenue(order.TotalAmount)
	observability.IncActiveUsers()

	s.events.OrderPlaced(ctx, order)

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Float64("total_amount", order.TotalAmount),
		slog.Int("item_count", len(order.Lines)),
	)

	return order, nil
}

// validateProducts checks every draft line against the catalog and snapshots
// prices. The first offending line fails the whole draft.
func (s *OrderService) validateProducts(ctx context.Context, parent trace.Span, lines []LineRequest) ([]validatedLine, float64, error) {
	ctx, span := s.tracer.Start(ctx, "validate_products")
	defer span.End()

	var total float64
	validated := make([]validatedLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, 0, apperrors.InvalidInput(
				fmt.Sprintf("quantity for product %s must be positive", line.ProductID))
		}

		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				parent.AddEvent("product_not_found", trace.WithAttributes(
					attribute.String("product.id", line.ProductID),
				))
				return nil, 0, &domain.ProductNotFoundError{ProductID: line.ProductID}
			}
			return nil, 0, &domain.PersistenceError{Err: err}
		}

		if !product.HasStock(line.Quantity) {
			parent.AddEvent("insufficient_stock", trace.WithAttributes(
				attribute.String("product.id", line.ProductID),
				attribute.Int("requested", line.Quantity),
				attribute.Int("available", product.Stock),
			))
			return nil, 0, &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: product.Stock,
			}
		}

		validated = append(validated, validatedLine{product: product, quantity: line.Quantity})
		total += product.Price * float64(line.Quantity)
	}

	span.SetAttributes(attribute.Float64("order.total_amount", total))
	return validated, total, nil
}

// processPayment charges the gateway for the order total. A decline is a
// typed failure; gateway faults are unexpected.
func (s *OrderService) processPayment(ctx context.Context, parent trace.Span, total float64) error {
	ctx, span := s.tracer.Start(ctx, "process_payment", trace.WithAttributes(
		attribute.Float64("payment.amount", total),
	))
	defer span.End()

	result, err := s.gateway.Charge(ctx, total)
	if err != nil {
		observability.RecordOrder(observability.OrderStatusError)
		return &domain.UnexpectedError{Cause: fmt.Errorf("payment gateway: %w", err)}
	}

	if result.Outcome == payment.OutcomeDeclined {
		parent.AddEvent("payment_failed", trace.WithAttributes(
			attribute.String("payment.reason", result.Reason),
		))
		observability.RecordOrder(observability.OrderStatusFailed)
		return &domain.PaymentDeclinedError{Reason: result.Reason}
	}

	parent.AddEvent("payment_successful", trace.WithAttributes(
		attribute.String("payment.transaction_id", result.TransactionID),
	))
	span.SetAttributes(attribute.String("payment.transaction_id", result.TransactionID))
	return nil
}

// saveOrder persists the order and its lines in one transaction.
func (s *OrderService) saveOrder(ctx context.Context, parent trace.Span, userID string, validated []validatedLine, total float64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "save_order")
	defer span.End()

	order := &domain.Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		TotalAmount: total,
		Status:      domain.OrderStatusPending,
		Lines:       make([]domain.OrderLine, 0, len(validated)),
		CreatedAt:   s.now().UTC(),
	}
	for _, v := range validated {
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:              uuid.New().String(),
			OrderID:         order.ID,
			ProductID:       v.product.ID,
			Quantity:        v.quantity,
			PriceAtPurchase: v.product.Price,
		})
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		observability.RecordOrder(observability.OrderStatusError)
		return nil, &domain.PersistenceError{Err: err}
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	parent.SetAttributes(attribute.String("order.id", order.ID))
	return order, nil
}

// updateInventory decrements stock for every line. Decrements are conditional
// at the storage layer; if one fails because a concurrent order won the race,
// already-applied decrements are compensated and the persisted order is
// flagged failed.
func (s *OrderService) updateInventory(ctx context.Context, parent trace.Span, order *domain.Order, validated []validatedLine) error {
	ctx, span := s.tracer.Start(ctx, "update_inventory")
	defer span.End()

	for i, v := range validated {
		if _, err := s.catalog.AdjustStock(ctx, v.product.ID, -v.quantity); err != nil {
			s.compensateStock(ctx, order.ID, validated[:i])
			s.failOrder(ctx, order.ID)

			var insufficientErr *domain.InsufficientStockError
			if errors.As(err, &insufficientErr) {
				parent.AddEvent("insufficient_stock", trace.WithAttributes(
					attribute.String("product.id", insufficientErr.ProductID),
					attribute.Int("requested", insufficientErr.Requested),
					attribute.Int("available", insufficientErr.Available),
				))
				observability.RecordOrder(observability.OrderStatusFailed)
				return insufficientErr
			}

			observability.RecordOrder(observability.OrderStatusError)
			return &domain.PersistenceError{Err: fmt.Errorf("adjust stock for product %s: %w", v.product.ID, err)}
		}
	}

	return nil
}

// compensateStock restores decrements applied before a mid-loop failure.
// Compensation failures are logged; stock drift is repaired operationally.
func (s *OrderService) compensateStock(ctx context.Context, orderID string, applied []validatedLine) {
	for _, v := range applied {
		if _, err := s.catalog.AdjustStock(ctx, v.product.ID, v.quantity); err != nil {
			s.logger.ErrorContext(ctx, "stock compensation failed",
				slog.String("order_id", orderID),
				slog.String("product_id", v.product.ID),
				slog.Int("quantity", v.quantity),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *OrderService) failOrder(ctx context.Context, orderID string) {
	if err := s.orders.UpdateOrderStatus(ctx, orderID, domain.OrderStatusFailed); err != nil {
		s.logger.ErrorContext(ctx, "flag order failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}

// outcomeFor maps a placement result to its metrics outcome label.
func outcomeFor(err error) string {
	if err == nil {
		return observability.OutcomeSuccess
	}

	var (
		notFound     *domain.ProductNotFoundError
		insufficient *domain.InsufficientStockError
		declined     *domain.PaymentDeclinedError
		persistence  *domain.PersistenceError
	)
	switch {
	case errors.As(err, &notFound):
		return observability.OutcomeProductNotFound
	case errors.As(err, &insufficient):
		return observability.OutcomeInsufficientStock
	case errors.As(err, &declined):
		return observability.OutcomePaymentDeclined
	case errors.As(err, &persistence):
		return observability.OutcomePersistenceError
	default:
		return observability.OutcomeInternalError
	}
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

// ListOrders returns orders with offset pagination, newest first.
func (s *OrderService) ListOrders(ctx context.Context, skip, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return s.orders.ListOrders(ctx, skip, limit)
}
