package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/domain"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/database"
	apperrors "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/errors"
)

func newOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return NewOrderRepository(mock), mock
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Order{
		ID:          "5cde7c2b-26cf-4f19-9b0f-3c7a0a111222",
		UserID:      "user-001",
		TotalAmount: 55.48,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		Lines: []domain.OrderLine{
			{
				ID:              "line-001",
				OrderID:         "5cde7c2b-26cf-4f19-9b0f-3c7a0a111222",
				ProductID:       "prod-001",
				Quantity:        2,
				PriceAtPurchase: 19.99,
			},
			{
				ID:              "line-002",
				OrderID:         "5cde7c2b-26cf-4f19-9b0f-3c7a0a111222",
				ProductID:       "prod-002",
				Quantity:        1,
				PriceAtPurchase: 15.50,
			},
		},
	}
}

func orderRows(t *testing.T, o *domain.Order) *pgxmock.Rows {
	t.Helper()
	linesJSON, err := json.Marshal(o.Lines)
	require.NoError(t, err)
	return pgxmock.NewRows([]string{"id", "user_id", "total_amount", "status", "created_at", "lines"}).
		AddRow(o.ID, o.UserID, o.TotalAmount, o.Status, o.CreatedAt, linesJSON)
}

func TestOrderRepository_CreateOrder(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.UserID, o.TotalAmount, o.Status, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, line := range o.Lines {
		mock.ExpectExec("INSERT INTO order_items").
			WithArgs(line.ID, line.OrderID, line.ProductID, line.Quantity, line.PriceAtPurchase).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.CreateOrder(context.Background(), o))
}

func TestOrderRepository_CreateOrder_RollsBackOnLineFailure(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.UserID, o.TotalAmount, o.Status, o.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(o.Lines[0].ID, o.Lines[0].OrderID, o.Lines[0].ProductID, o.Lines[0].Quantity, o.Lines[0].PriceAtPurchase).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.CreateOrder(context.Background(), o)

	assert.ErrorContains(t, err, "insert order item")
}

func TestOrderRepository_GetOrder(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleOrder()

	mock.ExpectQuery("SELECT(.+)FROM orders o").
		WithArgs(o.ID).
		WillReturnRows(orderRows(t, o))

	got, err := repo.GetOrder(context.Background(), o.ID)

	require.NoError(t, err)
	assert.Equal(t, o.TotalAmount, got.TotalAmount)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 19.99, got.Lines[0].PriceAtPurchase)
}

func TestOrderRepository_GetOrder_NotFound(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectQuery("SELECT(.+)FROM orders o").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetOrder(context.Background(), "missing")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_GetOrder_EmptyLines(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleOrder()
	o.Lines = nil

	rows := pgxmock.NewRows([]string{"id", "user_id", "total_amount", "status", "created_at", "lines"}).
		AddRow(o.ID, o.UserID, o.TotalAmount, o.Status, o.CreatedAt, []byte(`[]`))
	mock.ExpectQuery("SELECT(.+)FROM orders o").
		WithArgs(o.ID).
		WillReturnRows(rows)

	got, err := repo.GetOrder(context.Background(), o.ID)

	require.NoError(t, err)
	assert.Empty(t, got.Lines)
	assert.NotNil(t, got.Lines)
}

func TestOrderRepository_ListOrders(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleOrder()

	mock.ExpectQuery("SELECT(.+)FROM orders o").
		WithArgs(0, 20).
		WillReturnRows(orderRows(t, o))

	got, err := repo.ListOrders(context.Background(), 0, 20)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, o.ID, got[0].ID)
	assert.Len(t, got[0].Lines, 2)
}

func TestOrderRepository_UpdateOrderStatus(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("order-1", domain.OrderStatusFailed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateOrderStatus(context.Background(), "order-1", domain.OrderStatusFailed))
}

func TestOrderRepository_UpdateOrderStatus_NotFound(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("missing", domain.OrderStatusFailed).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateOrderStatus(context.Background(), "missing", domain.OrderStatusFailed)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
