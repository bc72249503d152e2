package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/domain"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/database"
	apperrors "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// orderSelect fetches an order with its lines aggregated as JSONB in a single
// query, avoiding the N+1 pattern when listing.
const orderSelect = `
	SELECT
		o.id, o.user_id, o.total_amount, o.status, o.created_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', l.id,
					'order_id', l.order_id,
					'product_id', l.product_id,
					'quantity', l.quantity,
					'price_at_purchase', l.price_at_purchase
				) ORDER BY l.id
			) FILTER (WHERE l.id IS NOT NULL),
			'[]'::jsonb
		) AS lines
	FROM orders o
	LEFT JOIN order_items l ON o.id = l.order_id`

// CreateOrder inserts an order and all of its lines in one transaction.
// If any line fails to persist, the whole order is rolled back.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders, order_items")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderQuery := `
		INSERT INTO orders (id, user_id, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.Exec(ctx, orderQuery, o.ID, o.UserID, o.TotalAmount, o.Status, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5)`

	for _, line := range o.Lines {
		_, err = tx.Exec(ctx, lineQuery,
			line.ID, line.OrderID, line.ProductID, line.Quantity, line.PriceAtPurchase,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetOrder retrieves an order by its ID, including its lines.
func (r *OrderRepository) GetOrder(ctx context.Context, id string) (_ *domain.Order, err error) {
	query := orderSelect + `
	WHERE o.id = $1
	GROUP BY o.id, o.user_id, o.total_amount, o.status, o.created_at`

	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	var (
		o         domain.Order
		linesJSON []byte
	)

	err = r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &linesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err = unmarshalLines(linesJSON, &o); err != nil {
		return nil, err
	}

	return &o, nil
}

// ListOrders returns orders with their lines, newest first.
func (r *OrderRepository) ListOrders(ctx context.Context, skip, limit int) (_ []domain.Order, err error) {
	query := orderSelect + `
	GROUP BY o.id, o.user_id, o.total_amount, o.status, o.created_at
	ORDER BY o.created_at DESC
	OFFSET $1 LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var (
			o         domain.Order
			linesJSON []byte
		)
		if err = rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &linesJSON); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err = unmarshalLines(linesJSON, &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus changes the status of an order.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id, status string) (err error) {
	query := `UPDATE orders SET status = $2 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateOrderStatus", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func unmarshalLines(linesJSON []byte, o *domain.Order) error {
	if len(linesJSON) == 0 || string(linesJSON) == "null" {
		o.Lines = []domain.OrderLine{}
		return nil
	}
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return fmt.Errorf("unmarshal order lines: %w", err)
	}
	return nil
}
