// Package main provides the entrypoint for the PWS context provider.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pwscontext/pwscontext/internal/api"
	"github.com/pwscontext/pwscontext/internal/api/middleware"
	"github.com/pwscontext/pwscontext/internal/config"
	"github.com/pwscontext/pwscontext/internal/provider/resilience"
	"github.com/pwscontext/pwscontext/internal/telemetry"
	"github.com/pwscontext/pwscontext/internal/weather"
	"github.com/pwscontext/pwscontext/internal/weather/wunderground"
	"github.com/pwscontext/pwscontext/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pws-context-provider"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.LogLevel)

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting PWS context provider")

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Upstream client: rate limit, then circuit breaker, then HTTP
	registry := resilience.NewRegistry()
	httpConfig := resilience.DefaultClientConfig(wunderground.ProviderName)
	httpConfig.Timeout = cfg.Upstream.Timeout
	httpConfig.Registry = registry
	httpConfig.Logger = log

	pws := wunderground.NewClient(wunderground.ClientConfig{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		HTTPClient:        resilience.NewClient(httpConfig),
		RequestsPerMinute: cfg.Upstream.RequestsPerMinute,
		Logger:            log,
	})

	cache := weather.NewConditionsCache(weather.CacheConfig{
		Enabled: cfg.Cache.Enabled,
		TTL:     cfg.Cache.ExpireTime,
		Logger:  log,
	})
	service := weather.NewService(weather.ServiceConfig{
		Provider: pws,
		Cache:    cache,
		Metrics:  providerMetrics,
		Logger:   log,
	})
	log.Info().
		Bool("cache_enabled", cfg.Cache.Enabled).
		Dur("cache_ttl", cfg.Cache.ExpireTime).
		Float64("upstream_rate_per_minute", cfg.Upstream.RequestsPerMinute).
		Msg("conditions service initialized")

	janitor := worker.NewJanitor(worker.JanitorConfig{
		Cache:    cache,
		Interval: cfg.Cache.SweepInterval,
		Logger:   log,
	})
	if err := janitor.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start cache janitor")
	}
	defer janitor.Stop()

	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		Metrics:      metrics,
		Service:      service,
		Registry:     registry,
		RequireTLS:   cfg.RequireTLS,
		QueryTimeout: cfg.QueryTimeout,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.QueryTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
