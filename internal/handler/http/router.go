package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/httputil"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/middleware"
)

// RouterConfig holds router-level settings.
type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter assembles the HTTP API: catalog and order endpoints plus health
// and metrics.
func NewRouter(
	cfg RouterConfig,
	products *ProductHandler,
	orders *OrderHandler,
	log *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(chimw.StripSlashes)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": cfg.ServiceName,
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/products", products.Routes)
	r.Route("/orders", orders.Routes)

	return r
}
