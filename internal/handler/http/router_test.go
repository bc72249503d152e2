package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/domain"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/event"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/payment"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/service"
	apperrors "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/errors"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/logger"
)

// memStore is an in-memory store backing the API under test.
type memStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]domain.Order
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]domain.Product{},
		orders:   map[string]domain.Order{},
	}
}

func (s *memStore) CreateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s *memStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, apperrors.ErrNotFound)
	}
	return &p, nil
}

func (s *memStore) ListProducts(_ context.Context, skip, limit int) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) AdjustStock(_ context.Context, id string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return nil, &domain.InsufficientStockError{ProductID: id, Requested: -delta, Available: p.Stock}
	}
	p.Stock += delta
	s.products[id] = p
	return &p, nil
}

func (s *memStore) CreateOrder(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = *o
	return nil
}

func (s *memStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, apperrors.ErrNotFound)
	}
	return &o, nil
}

func (s *memStore) ListOrders(_ context.Context, skip, limit int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (s *memStore) UpdateOrderStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

func newTestServer(t *testing.T, declineRate float64) (*httptest.Server, *memStore) {
	t.Helper()

	store := newMemStore()
	log := logger.New("api-test", "error")

	gw := payment.NewSimulatedGateway(
		payment.WithDelayWindow(time.Millisecond, 2*time.Millisecond),
		payment.WithDeclineRate(declineRate),
	)

	orderSvc := service.NewOrderService(store, store, gw, event.NewOrderEvents(nil, log), log)
	productSvc := service.NewProductService(store, log)

	router := NewRouter(
		RouterConfig{ServiceName: "ecommerce-backend", AllowedOrigins: []string{"*"}, RequestTimeout: 5 * time.Second},
		NewProductHandler(productSvc, log),
		NewOrderHandler(orderSvc, log),
		log,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store
}

func seedProduct(t *testing.T, store *memStore, price float64, stock int) string {
	t.Helper()
	id := uuid.New().String()
	require.NoError(t, store.CreateProduct(context.Background(), &domain.Product{
		ID: id, Name: "widget", Price: price, Stock: stock,
	}))
	return id
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ecommerce-backend", body["service"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateProduct(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp := postJSON(t, srv.URL+"/products/", map[string]any{
		"name": "Laptop", "description": "14 inch", "price": 999.99, "stock": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "Laptop", data["name"])
	assert.Equal(t, 999.99, data["price"])
}

func TestCreateProduct_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp := postJSON(t, srv.URL+"/products/", map[string]any{"name": "", "price": -1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
}

func TestGetProduct_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/products/" + uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetProduct_InvalidID(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp, err := http.Get(srv.URL + "/products/not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	srv, store := newTestServer(t, 0)
	productID := seedProduct(t, store, 25.0, 10)

	resp := postJSON(t, srv.URL+"/orders/", map[string]any{
		"user_id": "user-1",
		"items":   []map[string]any{{"product_id": productID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, 75.0, data["total_amount"])

	p, err := store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)

	// The placed order is readable back with its lines.
	getResp, err := http.Get(srv.URL + "/orders/" + data["id"].(string))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	fetched := decodeEnvelope(t, getResp)["data"].(map[string]any)
	assert.Len(t, fetched["items"], 1)
}

func TestPlaceOrder_ProductNotFoundMapsTo404(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp := postJSON(t, srv.URL+"/orders/", map[string]any{
		"user_id": "user-1",
		"items":   []map[string]any{{"product_id": uuid.New().String(), "quantity": 1}},
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
	assert.Contains(t, errObj["message"], "not found")
}

func TestPlaceOrder_InsufficientStockMapsTo400(t *testing.T) {
	srv, store := newTestServer(t, 0)
	productID := seedProduct(t, store, 10.0, 2)

	resp := postJSON(t, srv.URL+"/orders/", map[string]any{
		"user_id": "user-1",
		"items":   []map[string]any{{"product_id": productID, "quantity": 5}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_STOCK", errObj["code"])
	assert.Contains(t, errObj["message"], productID)
}

func TestPlaceOrder_PaymentDeclinedMapsTo402(t *testing.T) {
	srv, store := newTestServer(t, 1.0)
	productID := seedProduct(t, store, 10.0, 5)

	resp := postJSON(t, srv.URL+"/orders/", map[string]any{
		"user_id": "user-1",
		"items":   []map[string]any{{"product_id": productID, "quantity": 1}},
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "PAYMENT_DECLINED", errObj["code"])

	// A declined order leaves stock untouched and persists nothing.
	p, err := store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	orders, err := store.ListOrders(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_EmptyItemsRejected(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp := postJSON(t, srv.URL+"/orders/", map[string]any{
		"user_id": "user-1",
		"items":   []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
