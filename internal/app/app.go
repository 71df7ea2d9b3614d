package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ordercore/internal/auth"
	"github.com/utafrali/ordercore/internal/config"
	"github.com/utafrali/ordercore/internal/event"
	handler "github.com/utafrali/ordercore/internal/handler/http"
	"github.com/utafrali/ordercore/internal/idempotency"
	"github.com/utafrali/ordercore/internal/repository"
	"github.com/utafrali/ordercore/internal/repository/memory"
	"github.com/utafrali/ordercore/internal/repository/postgres"
	"github.com/utafrali/ordercore/internal/service"
	"github.com/utafrali/ordercore/migrations"
	"github.com/utafrali/ordercore/pkg/database"
	"github.com/utafrali/ordercore/pkg/health"
	pkgkafka "github.com/utafrali/ordercore/pkg/kafka"
	"github.com/utafrali/ordercore/pkg/middleware"
	"github.com/utafrali/ordercore/pkg/tracing"
)

// ServiceName tags logs, metrics and traces.
const ServiceName = "order-service"

// idempotencySweepInterval paces removal of expired in-memory idempotency keys.
const idempotencySweepInterval = time.Minute

// App wires together all dependencies and runs the order service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	idemMemory     *idempotency.MemoryStore
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Resources opened before a failure are released.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	healthHandler := health.NewHandler()

	store, err := a.openStore(ctx, reg)
	if err != nil {
		return nil, err
	}
	healthHandler.RegisterCritical("store", store.Ping)

	idem := a.openIdempotencyStore(ctx, healthHandler)
	events := a.openEventPublisher(reg, healthHandler)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL())
	orderService := service.NewOrderService(store, events, service.NewOrderMetrics(reg), logger)
	catalogService := service.NewCatalogService(store, logger)
	clientService := service.NewClientService(store.Clients(), jwtManager, cfg.BcryptCost, cfg.AdminEmails, logger)

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute, logger)

	router := handler.NewRouter(handler.RouterDeps{
		Orders:         orderService,
		Catalog:        catalogService,
		Clients:        clientService,
		Tokens:         jwtManager.Validator(),
		Health:         healthHandler,
		Metrics:        middleware.NewHTTPMetrics(reg, ServiceName),
		Gatherer:       reg,
		RateLimiter:    a.limiter,
		Idempotency:    idem,
		IdempotencyTTL: cfg.IdempotencyTTL(),
		CORS:           middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		Logger:         logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStore connects the configured storage backend.
func (a *App) openStore(ctx context.Context, reg prometheus.Registerer) (repository.Store, error) {
	if a.cfg.Store == config.StoreMemory {
		a.logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", a.cfg.PostgresHost),
		slog.Int("port", a.cfg.PostgresPort),
		slog.String("database", a.cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(reg, pool, ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if a.cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")
	}

	if threshold := a.cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, a.logger)
	}

	return postgres.NewStore(pool), nil
}

// openIdempotencyStore prefers Redis so keys survive restarts and are shared
// across replicas. An unreachable Redis degrades to process memory.
func (a *App) openIdempotencyStore(ctx context.Context, h *health.Handler) idempotency.Store {
	if a.cfg.RedisHost == "" {
		a.idemMemory = idempotency.NewMemoryStore()
		return a.idemMemory
	}

	rdb, err := database.NewRedisClient(ctx, a.cfg.Redis())
	if err != nil {
		a.logger.Warn("redis unavailable, idempotency keys kept in memory",
			slog.String("error", err.Error()),
		)
		a.idemMemory = idempotency.NewMemoryStore()
		return a.idemMemory
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis", slog.String("addr", a.cfg.Redis().Addr()))

	h.RegisterNonCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return idempotency.NewRedisStore(rdb)
}

// openEventPublisher builds the Kafka producer, or a no-op publisher when no
// brokers are configured.
func (a *App) openEventPublisher(reg prometheus.Registerer, h *health.Handler) service.EventPublisher {
	brokers := a.cfg.Brokers()
	if len(brokers) == 0 {
		a.logger.Warn("no kafka brokers configured, order events are not published")
		return event.Nop{}
	}

	a.producer = pkgkafka.NewProducer(a.cfg.Kafka(), pkgkafka.NewProducerMetrics(reg), a.logger)
	a.logger.Info("kafka producer initialized", slog.Any("brokers", brokers))

	h.RegisterNonCritical("kafka", a.producer.Ping)
	return event.NewProducer(a.producer, a.logger)
}

// Handler returns the HTTP handler tree.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.limiter.Run(ctx)
	if a.idemMemory != nil {
		go a.idemMemory.Run(ctx, idempotencySweepInterval)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP drain, tracer
// flush, Kafka producer, Redis, PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	if err := a.release(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes everything except the HTTP server.
func (a *App) release() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("kafka producer: %w", err))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
