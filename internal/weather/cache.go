package weather

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CacheConfig holds configuration for the conditions cache.
type CacheConfig struct {
	// Enabled turns caching on. A disabled cache never stores anything.
	Enabled bool

	// TTL is how long an observation stays fresh. Zero makes every entry
	// stale immediately.
	TTL time.Duration

	// Logger for cache operations.
	Logger zerolog.Logger

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time
}

// ConditionsCache keeps the latest observation per station for a bounded time.
type ConditionsCache struct {
	enabled bool
	ttl     time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*cachedObservation
}

type cachedObservation struct {
	observation *Observation
	expiresAt   time.Time
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Enabled      bool
	TTL          time.Duration
	Entries      int
	FreshEntries int
}

// NewConditionsCache creates a new conditions cache.
func NewConditionsCache(cfg CacheConfig) *ConditionsCache {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &ConditionsCache{
		enabled: cfg.Enabled,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		now:     clock,
		entries: make(map[string]*cachedObservation),
	}
}

// Get returns the cached observation of a station while it is fresh.
// An expired entry is removed.
func (c *ConditionsCache) Get(stationID string) (*Observation, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[stationID]
	if !ok {
		c.logger.Debug().Str("station_id", stationID).Msg("cache miss")
		return nil, false
	}

	if !cached.expiresAt.After(c.now()) {
		delete(c.entries, stationID)
		c.logger.Debug().
			Str("station_id", stationID).
			Time("expired_at", cached.expiresAt).
			Msg("cache entry expired")
		return nil, false
	}

	c.logger.Debug().Str("station_id", stationID).Msg("cache hit")
	return cached.observation, true
}

// Put stores an observation under its station id, replacing any previous entry.
func (c *ConditionsCache) Put(obs *Observation) {
	if !c.enabled || obs == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[obs.StationID] = &cachedObservation{
		observation: obs,
		expiresAt:   c.now().Add(c.ttl),
	}

	c.logger.Debug().
		Str("station_id", obs.StationID).
		Dur("ttl", c.ttl).
		Msg("cache updated")
}

// Purge removes expired entries and returns how many were removed.
func (c *ConditionsCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for key, cached := range c.entries {
		if !cached.expiresAt.After(now) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired conditions cache entries")
	}

	return expired
}

// Stats returns cache statistics.
func (c *ConditionsCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	fresh := 0
	for _, cached := range c.entries {
		if cached.expiresAt.After(now) {
			fresh++
		}
	}

	return CacheStats{
		Enabled:      c.enabled,
		TTL:          c.ttl,
		Entries:      len(c.entries),
		FreshEntries: fresh,
	}
}
