package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      Timestamp        `json:"time"`
	Cache     CacheStatus      `json:"cache"`
	Providers []ProviderStatus `json:"providers"`
}

// CacheStatus describes the conditions cache.
type CacheStatus struct {
	Enabled      bool `json:"enabled"`
	TTLSeconds   int  `json:"ttlSeconds"`
	Entries      int  `json:"entries"`
	FreshEntries int  `json:"freshEntries"`
}

// ProviderStatus represents the status of an upstream provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
