package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/domain"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/repository"
)

// ProductService exposes catalog reads and writes.
type ProductService struct {
	catalog repository.CatalogRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewProductService creates a catalog service.
func NewProductService(catalog repository.CatalogRepository, log *slog.Logger) *ProductService {
	return &ProductService{catalog: catalog, logger: log, now: time.Now}
}

// CreateProduct adds a product to the catalog.
func (s *ProductService) CreateProduct(ctx context.Context, name, description string, price float64, stock int) (*domain.Product, error) {
	now := s.now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.catalog.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return product, nil
}

// GetProduct retrieves a product by ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

// ListProducts returns products with offset pagination.
func (s *ProductService) ListProducts(ctx context.Context, skip, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return s.catalog.ListProducts(ctx, skip, limit)
}
