// Package api provides the HTTP API of the PWS context provider.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pwscontext/pwscontext/internal/api/handler"
	"github.com/pwscontext/pwscontext/internal/api/middleware"
	"github.com/pwscontext/pwscontext/internal/provider/resilience"
	"github.com/pwscontext/pwscontext/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	// Service resolves stations to entities (required).
	Service *weather.Service

	// Registry exposes upstream health on /v2/ops/status (optional).
	Registry *resilience.Registry

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// QueryTimeout bounds a whole query (default: handler.DefaultQueryTimeout).
	QueryTimeout time.Duration

	// QueryRateLimit limits /v2/op/query per client IP (default: middleware.QueryRateLimit).
	QueryRateLimit middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	queryRateLimit := cfg.QueryRateLimit
	if queryRateLimit.RequestLimit <= 0 || queryRateLimit.WindowLength <= 0 {
		queryRateLimit = middleware.QueryRateLimit
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Service, cfg.Registry)
	queryHandler := handler.NewQueryHandler(cfg.Service, cfg.QueryTimeout, cfg.Logger)

	r.Route("/v2", func(r chi.Router) {
		r.With(middleware.RateLimitByIP(queryRateLimit)).Post("/op/query", queryHandler.Query)

		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})
	})

	return r
}
