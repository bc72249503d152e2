package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/config"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/event"
	handler "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/handler/http"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/payment"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/repository/postgres"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/internal/service"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/migrations"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/database"
	pkgkafka "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/kafka"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/tracing"
)

// App wires together all dependencies and runs the service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates the application with all dependencies initialized.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracingShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	database.RegisterPoolMetrics(pool, cfg.ServiceName)

	var producer *pkgkafka.Producer
	var publisher event.Publisher
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("kafka disabled, order events will not be published")
	}

	// Build the dependency graph.
	catalogRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	gateway := payment.NewSimulatedGateway(
		payment.WithDelayWindow(cfg.PaymentMinDelay, cfg.PaymentMaxDelay),
		payment.WithDeclineRate(cfg.PaymentDeclineRate),
	)

	orderEvents := event.NewOrderEvents(publisher, logger)
	orderService := service.NewOrderService(orderRepo, catalogRepo, gateway, orderEvents, logger)
	productService := service.NewProductService(catalogRepo, logger)

	router := handler.NewRouter(
		handler.RouterConfig{
			ServiceName:    cfg.ServiceName,
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
		},
		handler.NewProductHandler(productService, logger),
		handler.NewOrderHandler(orderService, logger),
		logger,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in reverse dependency order.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	a.pool.Close()

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
