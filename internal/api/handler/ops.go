package handler

import (
	"net/http"
	"time"

	"github.com/pwscontext/pwscontext/internal/api/models"
	"github.com/pwscontext/pwscontext/internal/api/response"
	"github.com/pwscontext/pwscontext/internal/provider/resilience"
	"github.com/pwscontext/pwscontext/internal/weather"
)

// CacheStatter reports conditions cache statistics.
type CacheStatter interface {
	CacheStats() weather.CacheStats
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	cache     CacheStatter
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. cache and registry may be nil.
func NewOpsHandler(version, buildTime string, cache CacheStatter, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		cache:     cache,
		registry:  registry,
	}
}

// HealthCheck handles GET /v2/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v2/ops/status - cache and upstream status.
// The overall status is the worst status of any upstream provider.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Providers: []models.ProviderStatus{},
	}

	if h.cache != nil {
		stats := h.cache.CacheStats()
		status.Cache = models.CacheStatus{
			Enabled:      stats.Enabled,
			TTLSeconds:   int(stats.TTL / time.Second),
			Entries:      stats.Entries,
			FreshEntries: stats.FreshEntries,
		}
	}

	if h.registry != nil {
		for _, health := range h.registry.GetAllHealth() {
			provider := providerStatus(health)
			status.Providers = append(status.Providers, provider)
			status.Status = worst(status.Status, provider.Status)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(health *resilience.ProviderHealth) models.ProviderStatus {
	provider := models.ProviderStatus{
		Provider:     health.Name,
		Status:       models.HealthStatusOK,
		CircuitState: health.CircuitState.String(),
	}

	switch {
	case health.IsUnhealthy():
		provider.Status = models.HealthStatusFail
	case health.IsDegraded():
		provider.Status = models.HealthStatusDegraded
	}

	if health.LastSuccessAt != nil {
		ts := models.Timestamp(*health.LastSuccessAt)
		provider.LastSuccessAt = &ts
	}
	if health.LastFailureAt != nil {
		ts := models.Timestamp(*health.LastFailureAt)
		provider.LastFailureAt = &ts
	}
	if health.LastError != "" {
		msg := health.LastError
		provider.Message = &msg
	}

	return provider
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
