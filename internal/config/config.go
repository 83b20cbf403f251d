// Package config loads the provider configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Environment variable names.
const (
	EnvPort              = "PROVIDER_PORT"
	EnvAPIKey            = "PROVIDER_WUNDERGROUND_API_KEY"
	EnvBaseURL           = "PROVIDER_WUNDERGROUND_BASE_URL"
	EnvCacheEnabled      = "PROVIDER_CACHE_ENABLED"
	EnvCacheExpireTime   = "PROVIDER_CACHE_EXPIRE_TIME"
	EnvCacheSweep        = "PROVIDER_CACHE_SWEEP_INTERVAL"
	EnvUpstreamTimeout   = "PROVIDER_UPSTREAM_TIMEOUT"
	EnvUpstreamRate      = "PROVIDER_UPSTREAM_RATE_PER_MINUTE"
	EnvLogLevel          = "PROVIDER_LOG_LEVEL"
	EnvRequireTLS        = "PROVIDER_REQUIRE_TLS"
	EnvQueryTimeout      = "PROVIDER_QUERY_TIMEOUT"
	EnvTelemetryEnabled  = "OTEL_ENABLED"
	EnvTelemetryEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvEnvironment       = "APP_ENV"
)

// apiKeyPattern matches weather.com API keys.
var apiKeyPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

// Config is the provider configuration.
type Config struct {
	Port     int    `validate:"min=1,max=65535"`
	APIKey   string `validate:"pwskey"`
	BaseURL  string `validate:"required,url"`
	LogLevel zerolog.Level

	// RequireTLS rejects requests that reached the proxy over plain HTTP.
	RequireTLS bool

	// QueryTimeout bounds the upstream work of one query, rate limit waits
	// included. The server write timeout is derived from it.
	QueryTimeout time.Duration `validate:"gt=0"`

	Cache     CacheConfig
	Upstream  UpstreamConfig
	Telemetry TelemetryConfig
}

// CacheConfig configures the conditions cache.
type CacheConfig struct {
	Enabled bool

	// ExpireTime is the freshness window of a cached observation.
	ExpireTime time.Duration `validate:"gte=0"`

	// SweepInterval is how often expired entries are purged. Zero disables the sweep.
	SweepInterval time.Duration `validate:"gte=0"`
}

// UpstreamConfig configures calls to the PWS API.
type UpstreamConfig struct {
	Timeout           time.Duration `validate:"gt=0"`
	RequestsPerMinute float64       `validate:"gt=0"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string `validate:"required_if=Enabled true"`
	Environment  string
}

// Load reads an optional .env file, then the environment.
func Load(log zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a configuration from a variable lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Port:     p.integer(EnvPort, 3000),
		APIKey:   getenv(EnvAPIKey),
		BaseURL:  p.text(EnvBaseURL, "https://api.weather.com/v2/pws/observations/current"),
		LogLevel: p.level(EnvLogLevel, zerolog.InfoLevel),

		RequireTLS:   p.boolean(EnvRequireTLS, false),
		QueryTimeout: p.duration(EnvQueryTimeout, 30*time.Second),
		Cache: CacheConfig{
			Enabled:       p.boolean(EnvCacheEnabled, true),
			ExpireTime:    time.Duration(p.integer(EnvCacheExpireTime, 60)) * time.Second,
			SweepInterval: p.duration(EnvCacheSweep, 5*time.Minute),
		},
		Upstream: UpstreamConfig{
			Timeout:           p.duration(EnvUpstreamTimeout, 10*time.Second),
			RequestsPerMinute: p.number(EnvUpstreamRate, 30),
		},
		Telemetry: TelemetryConfig{
			Enabled:      p.boolean(EnvTelemetryEnabled, false),
			OTLPEndpoint: p.text(EnvTelemetryEndpoint, "localhost:4317"),
			Environment:  p.text(EnvEnvironment, "development"),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration rules.
func Validate(cfg *Config) error {
	return newValidator().Struct(cfg)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("pwskey", func(fl validator.FieldLevel) bool {
		return apiKeyPattern.MatchString(fl.Field().String())
	})
	return v
}

// parser reads typed variables and collects every malformed value.
type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) text(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) number(key string, def float64) float64 {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (p *parser) level(key string, def zerolog.Level) zerolog.Level {
	v := p.getenv(key)
	if v == "" {
		return def
	}
	level, err := zerolog.ParseLevel(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return level
}
