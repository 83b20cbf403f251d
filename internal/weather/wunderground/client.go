// Package wunderground fetches current conditions of personal weather
// stations from the Weather Underground (weather.com) PWS API.
package wunderground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/pwscontext/pwscontext/internal/provider/resilience"
	"github.com/pwscontext/pwscontext/internal/weather"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "wunderground"

	// DefaultBaseURL is the PWS current conditions endpoint.
	DefaultBaseURL = "https://api.weather.com/v2/pws/observations/current"

	// DefaultRequestsPerMinute matches the free PWS API quota.
	DefaultRequestsPerMinute = 30

	tracerName = "github.com/pwscontext/pwscontext/internal/weather/wunderground"

	// maxErrorBody bounds how much of an error response is read for logging.
	maxErrorBody = 512
)

// ClientConfig holds configuration for the PWS client.
type ClientConfig struct {
	// APIKey is the weather.com API key (required).
	APIKey string

	// BaseURL is the endpoint URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// RequestsPerMinute caps upstream calls (default: DefaultRequestsPerMinute).
	RequestsPerMinute float64

	// Burst is the number of calls allowed at once (default: 1).
	Burst int

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a PWS current conditions API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	limiter    *rate.Limiter
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient creates a new PWS client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(perMinute/60), burst),
		tracer:     otel.Tracer(tracerName),
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentConditions fetches the latest observation of a station.
func (c *Client) CurrentConditions(ctx context.Context, stationID string) (obs *weather.Observation, err error) {
	ctx, span := c.tracer.Start(ctx, "wunderground.CurrentConditions",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("pws.station_id", stationID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(weather.KindOf(err)))
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &weather.APIError{Message: fmt.Sprintf("rate limit wait canceled: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(stationID), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, &weather.APIError{Message: "upstream circuit open"}
		}
		return nil, &weather.APIError{Message: fmt.Sprintf("executing request: %v", resilience.RedactURL(err))}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent:
		return nil, weather.ErrStationNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().
			Str("station_id", stationID).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("upstream returned an error status")
		return nil, &weather.APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if contentType := resp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		return nil, &weather.APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected content type %q", contentType),
		}
	}

	var envelope CurrentConditionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &weather.APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}

	observations, err := AdaptResponse(&envelope)
	if err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, weather.ErrStationNotFound
	}

	obs = observations[0]
	if obs.QCStatus != nil && *obs.QCStatus != weather.QCPassed {
		c.logger.Warn().
			Str("station_id", obs.StationID).
			Str("qc_status", obs.QCStatus.String()).
			Msg("observation did not pass quality control")
	}

	c.logger.Debug().Str("station_id", obs.StationID).Msg("fetched current conditions")

	return obs, nil
}

func (c *Client) requestURL(stationID string) string {
	query := url.Values{}
	query.Set("stationId", stationID)
	query.Set("format", "json")
	query.Set("units", "m")
	query.Set("apiKey", c.apiKey)
	return c.baseURL + "?" + query.Encode()
}
