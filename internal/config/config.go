package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/config"
	"github.com/delightverse/E-commerce-application-with-Obersvability-Prometheus-OpenTelemetry-Jaegar-Grafana/pkg/database"
)

// Config holds all configuration for the service.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"ecommerce-backend"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"ecommerce_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"15m"`

	// Kafka. An empty broker list disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"true"`
	OTLPEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`

	// Payment simulation
	PaymentDeclineRate float64       `env:"PAYMENT_DECLINE_RATE" envDefault:"0.05"`
	PaymentMinDelay    time.Duration `env:"PAYMENT_MIN_DELAY" envDefault:"50ms"`
	PaymentMaxDelay    time.Duration `env:"PAYMENT_MAX_DELAY" envDefault:"200ms"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PaymentDeclineRate < 0 || c.PaymentDeclineRate >= 1 {
		return fmt.Errorf("payment decline rate must be in [0,1): %g", c.PaymentDeclineRate)
	}
	if c.PaymentMinDelay < 0 || c.PaymentMaxDelay < c.PaymentMinDelay {
		return fmt.Errorf("invalid payment delay window: %s-%s", c.PaymentMinDelay, c.PaymentMaxDelay)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("trace sample rate must be in [0,1]: %g", c.TraceSampleRate)
	}
	return nil
}

// Postgres maps the flat env fields onto the database package's config.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPass,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSL,

		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}
