package routes

import (
	"net/http"
	"time"

	"fieldops/ledgersync/internal/api"
	"fieldops/ledgersync/internal/logging"
	"fieldops/ledgersync/internal/metrics"
	"fieldops/ledgersync/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RegisterRoutes builds the HTTP surface: health, the platform webhook and
// the authenticated /api/v1 tree. /metrics is mounted by the caller.
func RegisterRoutes(deps *api.Dependencies, metricsReg *metrics.MetricsRegistry, health map[string]api.Pinger, upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	limiter := middleware.NewRateLimiter(deps.Config.Auth.RateLimitPerSec, deps.Config.Auth.RateLimitBurst)

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Logging)
	r.Use(middleware.MetricsMiddleware(metricsReg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// health check stays outside the limiter
	r.Get("/healthCheck", api.HealthCheckHandler(health, upSince))

	handlers := api.NewHandlers(deps)

	r.Group(func(limited chi.Router) {
		limited.Use(limiter.Middleware)

		// Signed by the platform; no caller identity
		limited.Post("/webhooks/accounting", handlers.AccountingWebhook())

		RegisterAPIRoutes(limited, deps, handlers)
	})

	logging.Info("Router initialized with metrics and logging middleware")
	return r
}
