package postgres

import (
	"context"
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

func newProductRepo(t *testing.T) (*ProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return NewProductRepository(mock), mock
}

func productRows(p *domain.Product) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "description", "price", "stock", "created_at", "updated_at"}).
		AddRow(p.ID, p.Name, p.Description, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt)
}

func sampleProduct() *domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Product{
		ID:          "2f6b0a2e-6f1e-4b46-9f10-1f6f64a0a111",
		Name:        "Widget",
		Description: "a widget",
		Price:       19.99,
		Stock:       7,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestProductRepository_CreateProduct(t *testing.T) {
	repo, mock := newProductRepo(t)
	p := sampleProduct()

	mock.ExpectExec("INSERT INTO products").
		WithArgs(p.ID, p.Name, p.Description, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.CreateProduct(context.Background(), p))
}

func TestProductRepository_GetProduct(t *testing.T) {
	repo, mock := newProductRepo(t)
	p := sampleProduct()

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(productRows(p))

	got, err := repo.GetProduct(context.Background(), p.ID)

	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Price, got.Price)
	assert.Equal(t, p.Stock, got.Stock)
}

func TestProductRepository_GetProduct_NotFound(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetProduct(context.Background(), "missing")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_AdjustStock_Decrement(t *testing.T) {
	repo, mock := newProductRepo(t)
	p := sampleProduct()
	p.Stock = 4

	mock.ExpectQuery("UPDATE products").
		WithArgs(p.ID, -3).
		WillReturnRows(productRows(p))

	got, err := repo.AdjustStock(context.Background(), p.ID, -3)

	require.NoError(t, err)
	assert.Equal(t, 4, got.Stock)
}

func TestProductRepository_AdjustStock_Insufficient(t *testing.T) {
	repo, mock := newProductRepo(t)
	p := sampleProduct()

	// Conditional update matches no row; the recheck finds the product with
	// stock 2, so the failure is classified as insufficient stock.
	mock.ExpectQuery("UPDATE products").
		WithArgs(p.ID, -5).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT stock FROM products").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(2))

	got, err := repo.AdjustStock(context.Background(), p.ID, -5)

	assert.Nil(t, got)
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, p.ID, insufficient.ProductID)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)
}

func TestProductRepository_AdjustStock_NotFound(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("UPDATE products").
		WithArgs("missing", -1).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT stock FROM products").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.AdjustStock(context.Background(), "missing", -1)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_AdjustStock_QueryError(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("UPDATE products").
		WithArgs("p1", -1).
		WillReturnError(errors.New("connection reset"))

	got, err := repo.AdjustStock(context.Background(), "p1", -1)

	assert.Nil(t, got)
	assert.ErrorContains(t, err, "adjust stock")
}

func TestProductRepository_ListProducts(t *testing.T) {
	repo, mock := newProductRepo(t)
	p := sampleProduct()

	mock.ExpectQuery("SELECT (.+) FROM products ORDER BY created_at").
		WithArgs(0, 10).
		WillReturnRows(productRows(p))

	got, err := repo.ListProducts(context.Background(), 0, 10)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
}
