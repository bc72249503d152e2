package repository

import (
	"context"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/domain"
)

// CatalogRepository is the storage collaborator for products. Reads are
// strongly consistent with concurrent writers.
type CatalogRepository interface {
	// CreateProduct inserts a new product.
	CreateProduct(ctx context.Context, p *domain.Product) error

	// GetProduct retrieves a product by ID. Returns pkg/errors.ErrNotFound
	// if it does not exist.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// ListProducts returns products with simple offset pagination.
	ListProducts(ctx context.Context, skip, limit int) ([]domain.Product, error)

	// AdjustStock atomically adjusts a product's stock by delta and returns
	// the updated product. The adjustment is conditional: if it would take
	// stock negative it fails with domain.InsufficientStockError and leaves
	// the row untouched. Returns pkg/errors.ErrNotFound for a missing product.
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error)
}

// OrderRepository is the storage collaborator for orders and their lines.
type OrderRepository interface {
	// CreateOrder inserts an order and all of its lines in one transaction:
	// either everything is visible or nothing is.
	CreateOrder(ctx context.Context, o *domain.Order) error

	// GetOrder retrieves an order by ID including its lines.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	// ListOrders returns orders (with lines) with simple offset pagination,
	// newest first.
	ListOrders(ctx context.Context, skip, limit int) ([]domain.Order, error)

	// UpdateOrderStatus changes the status of an order.
	UpdateOrderStatus(ctx context.Context, id, status string) error
}
