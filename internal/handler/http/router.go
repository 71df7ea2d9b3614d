package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/idempotency"
	"github.com/utafrali/ordercore/internal/service"
	"github.com/utafrali/ordercore/pkg/health"
	"github.com/utafrali/ordercore/pkg/middleware"
)

// productCacheSeconds is short since listings carry live stock counts.
const productCacheSeconds = 30

// RouterDeps collects everything the HTTP layer needs.
type RouterDeps struct {
	Orders  *service.OrderService
	Catalog *service.CatalogService
	Clients *service.ClientService

	Tokens      middleware.TokenValidator
	Health      *health.Handler
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter

	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration

	CORS       middleware.CORSConfig
	PprofCIDRs []string
	Logger     *slog.Logger
}

// NewRouter creates a chi router with all order service routes registered.
func NewRouter(d RouterDeps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(d.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))

	// Health check endpoints
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, d.PprofCIDRs, logger)

	auth := middleware.Auth(d.Tokens)
	admin := middleware.RequireRole(domain.RoleAdmin)

	clientHandler := NewClientHandler(d.Clients, logger)
	r.Route("/api/v1/clients", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", clientHandler.Register)
		r.Post("/login", clientHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/me", clientHandler.GetMe)
			r.Put("/me", clientHandler.UpdateMe)
			r.Post("/me/password", clientHandler.ChangePassword)
			r.Delete("/me", clientHandler.DeleteMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth, admin)
			r.Get("/", clientHandler.ListClients)
			r.Get("/email/{email}", clientHandler.GetClientByEmail)
			r.Get("/{id}", clientHandler.GetClient)
			r.Delete("/{id}", clientHandler.DeactivateClient)
		})
	})

	productHandler := NewProductHandler(d.Catalog, logger)
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(productCacheSeconds))
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth, admin)
			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeactivateProduct)
		})
	})

	orderHandler := NewOrderHandler(d.Orders, logger)
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth)

		r.Get("/", orderHandler.ListOrders)
		r.Get("/{id}", orderHandler.GetOrder)

		// Writes are rate limited per client.
		r.Group(func(r chi.Router) {
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Middleware)
			}
			r.With(idempotency.Middleware(d.Idempotency, idempotency.Config{TTL: d.IdempotencyTTL}, logger)).
				Post("/", orderHandler.CreateOrder)
			r.Patch("/{id}/status", orderHandler.UpdateOrderStatus)
			r.Delete("/{id}", orderHandler.CancelOrder)
		})
	})

	return r
}
