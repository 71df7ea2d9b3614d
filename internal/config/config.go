package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/ordercore/pkg/config"
	"github.com/utafrali/ordercore/pkg/database"
	"github.com/utafrali/ordercore/pkg/kafka"
	"github.com/utafrali/ordercore/pkg/tracing"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	devJWTSecret = "dev-secret-change-me"
)

// Config holds all configuration for the order service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort            int `env:"ORDER_HTTP_PORT" envDefault:"8004"`
	ShutdownTimeoutSecs int `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"15"`

	// Storage backend: postgres or memory.
	Store string `env:"ORDER_STORE" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB   string `env:"ORDER_DB_NAME" envDefault:"order_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	DBMaxConns        int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns        int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTime int   `env:"DB_MAX_CONN_IDLE_MINUTES" envDefault:"30"`
	RunMigrations     bool  `env:"DB_RUN_MIGRATIONS" envDefault:"true"`
	LogSlowQueryMS    int   `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Redis backs the idempotency store. An empty host keeps it in memory.
	RedisHost             string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort             int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword         string `env:"REDIS_PASSWORD"`
	RedisDB               int    `env:"REDIS_DB" envDefault:"0"`
	IdempotencyTTLSeconds int    `env:"IDEMPOTENCY_TTL_SECONDS" envDefault:"86400"`

	// Kafka. No brokers disables event publishing.
	KafkaBrokers             []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaBreakerMaxFailures  uint32   `env:"KAFKA_BREAKER_MAX_FAILURES" envDefault:"5"`
	KafkaBreakerOpenTimeoutS int      `env:"KAFKA_BREAKER_OPEN_TIMEOUT_SECONDS" envDefault:"30"`

	// Auth
	JWTSecret           string   `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTAccessTTLMinutes int      `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
	BcryptCost          int      `env:"BCRYPT_COST" envDefault:"12"`
	AdminEmails         []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Rate limiting on order writes, per client.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1"`

	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load order config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, vars); err != nil {
		return nil, fmt.Errorf("load order config: %w", err)
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
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("ORDER_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.Store == StorePostgres && c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.JWTAccessTTLMinutes <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL_MINUTES must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.IdempotencyTTLSeconds <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL_SECONDS must be positive")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1], got %v", c.OTelSampleRate)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Postgres returns the pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetime) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTime) * time.Minute,
	}
}

// Redis returns the idempotency store connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Kafka returns the producer settings with the configured breaker.
func (c *Config) Kafka() kafka.ProducerConfig {
	pc := kafka.DefaultProducerConfig(c.Brokers())
	pc.Breaker = kafka.BreakerConfig{
		MaxFailures: c.KafkaBreakerMaxFailures,
		OpenTimeout: time.Duration(c.KafkaBreakerOpenTimeoutS) * time.Second,
	}
	return pc
}

// Brokers returns the non-empty broker addresses.
func (c *Config) Brokers() []string {
	return slices.DeleteFunc(slices.Clone(c.KafkaBrokers), func(b string) bool {
		return strings.TrimSpace(b) == ""
	})
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing(serviceName string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTelEndpoint,
		SampleRate:     c.OTelSampleRate,
		Enabled:        c.OTelEnabled,
	}
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.LogSlowQueryMS) * time.Millisecond
}
