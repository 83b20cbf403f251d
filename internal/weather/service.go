package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for current conditions providers.
type Provider interface {
	// CurrentConditions fetches the latest observation of a station.
	CurrentConditions(ctx context.Context, stationID string) (*Observation, error)

	// Name returns the provider name for logging.
	Name() string
}

// MetricsRecorder receives provider call and cache metrics.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

const operationCurrentConditions = "current_conditions"

// ServiceConfig holds configuration for the conditions service.
type ServiceConfig struct {
	// Provider is the upstream conditions provider.
	Provider Provider

	// Cache holds recent observations. A nil cache disables caching.
	Cache *ConditionsCache

	// Metrics is optional.
	Metrics MetricsRecorder

	// Logger for service operations.
	Logger zerolog.Logger

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time
}

// Service serves current conditions cache-aside: fresh cached observations
// are returned directly, everything else is fetched and cached.
type Service struct {
	provider Provider
	cache    *ConditionsCache
	metrics  MetricsRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new conditions service.
func NewService(cfg ServiceConfig) *Service {
	cache := cfg.Cache
	if cache == nil {
		cache = NewConditionsCache(CacheConfig{Enabled: false, Logger: cfg.Logger})
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		provider: cfg.Provider,
		cache:    cache,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      clock,
	}
}

// CurrentConditions returns the latest observation of a station.
func (s *Service) CurrentConditions(ctx context.Context, stationID string) (*Observation, error) {
	if obs, ok := s.cache.Get(stationID); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit(s.provider.Name(), operationCurrentConditions)
		}
		return obs, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), operationCurrentConditions)
	}

	s.logger.Debug().
		Str("station_id", stationID).
		Str("provider", s.provider.Name()).
		Msg("fetching current conditions from provider")

	start := time.Now()
	obs, err := s.provider.CurrentConditions(ctx, stationID)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), operationCurrentConditions, time.Since(start), err)
	}
	if err != nil {
		event := s.logger.Error()
		if KindOf(err) == KindNotFound {
			event = s.logger.Debug()
		}
		event.Err(err).
			Str("station_id", stationID).
			Msg("failed to fetch current conditions")
		return nil, fmt.Errorf("current conditions for station %s: %w", stationID, err)
	}

	s.cache.Put(obs)
	return obs, nil
}

// Observed returns the current conditions of a station as a WeatherObserved entity.
func (s *Service) Observed(ctx context.Context, stationID string) (*WeatherObserved, error) {
	obs, err := s.CurrentConditions(ctx, stationID)
	if err != nil {
		return nil, err
	}

	entity, err := obs.ToWeatherObserved(s.now())
	if err != nil {
		return nil, fmt.Errorf("convert observation of station %s: %w", stationID, err)
	}
	return entity, nil
}

// CacheStats returns statistics of the underlying cache.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// ProviderName returns the name of the upstream provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
