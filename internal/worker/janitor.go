// Package worker runs background maintenance for the provider.
package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Purger removes expired entries and reports how many were removed.
type Purger interface {
	Purge() int
}

// JanitorConfig holds configuration for the cache janitor.
type JanitorConfig struct {
	Cache Purger

	// Interval between sweeps. Zero disables the janitor.
	Interval time.Duration

	Logger zerolog.Logger
}

// Janitor periodically purges expired observations from the conditions cache.
// Expired entries are never served, so the sweep only bounds memory.
type Janitor struct {
	scheduler *gocron.Scheduler
	cache     Purger
	interval  time.Duration
	logger    zerolog.Logger
}

// NewJanitor creates a new Janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	return &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		cache:     cfg.Cache,
		interval:  cfg.Interval,
		logger:    cfg.Logger.With().Str("component", "cache_janitor").Logger(),
	}
}

// Start schedules the sweep and starts the scheduler. The first sweep runs
// immediately.
func (j *Janitor) Start() error {
	if j.interval <= 0 {
		j.logger.Info().Msg("cache sweep disabled")
		return nil
	}
	if j.cache == nil {
		return errors.New("janitor: no cache configured")
	}

	if _, err := j.scheduler.Every(j.interval).Do(j.Sweep); err != nil {
		return fmt.Errorf("janitor: schedule sweep: %w", err)
	}

	j.scheduler.StartAsync()
	j.logger.Info().Dur("interval", j.interval).Msg("cache janitor started")
	return nil
}

// Sweep purges expired entries once.
func (j *Janitor) Sweep() {
	started := time.Now()
	removed := j.cache.Purge()

	j.logger.Debug().
		Int("removed", removed).
		Dur("duration", time.Since(started)).
		Msg("cache sweep completed")
}

// Stop stops the scheduler. Safe to call when Start was never called.
func (j *Janitor) Stop() {
	if j.scheduler.IsRunning() {
		j.scheduler.Stop()
	}
}
