package wunderground_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwscontext/pwscontext/internal/provider/resilience"
	"github.com/pwscontext/pwscontext/internal/weather"
	"github.com/pwscontext/pwscontext/internal/weather/wunderground"
)

const testAPIKey = "0123456789abcdef0123456789abcdef"

func newTestClient(serverURL string) *wunderground.Client {
	return wunderground.NewClient(wunderground.ClientConfig{
		APIKey:            testAPIKey,
		BaseURL:           serverURL,
		HTTPClient:        resilience.NewClient(resilience.DefaultClientConfig("wunderground-test")),
		RequestsPerMinute: 60000,
		Burst:             10,
		Logger:            zerolog.Nop(),
	})
}

func TestClient_CurrentConditions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "IHERNE113", r.URL.Query().Get("stationId"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "m", r.URL.Query().Get("units"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("apiKey"))

		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		_, _ = w.Write([]byte(herneResponse))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.Equal(t, "wunderground", client.Name())

	obs, err := client.CurrentConditions(context.Background(), "IHERNE113")
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, "IHERNE113", obs.StationID)
	assert.InDelta(t, 0.86, *obs.Humidity, 1e-12)
	assert.InDelta(t, 8.611111111111111, *obs.WindGust, 1e-12)
}

func TestClient_CurrentConditions_StatusHandling(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantKind    weather.Kind
		wantStatus  int
	}{
		{"not found", http.StatusNotFound, "application/json", `{}`, weather.KindNotFound, 0},
		{"no content", http.StatusNoContent, "", "", weather.KindNotFound, 0},
		{"empty observations", http.StatusOK, "application/json", `{"observations":[]}`, weather.KindNotFound, 0},
		{"unauthorized", http.StatusUnauthorized, "application/json", `{"errors":[]}`, weather.KindAPI, http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError, "text/plain", "boom", weather.KindAPI, http.StatusInternalServerError},
		{"html body", http.StatusOK, "text/html", "<html></html>", weather.KindAPI, http.StatusOK},
		{"broken json", http.StatusOK, "application/json", `{"observations":[`, weather.KindAPI, http.StatusOK},
		{"record without station", http.StatusOK, "application/json", `{"observations":[{"lat":1}]}`, weather.KindValue, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CurrentConditions(context.Background(), "IHERNE113")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, weather.KindOf(err))

			if tt.wantStatus != 0 {
				var apiErr *weather.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			}
		})
	}
}

func TestClient_CurrentConditions_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).CurrentConditions(context.Background(), "IHERNE113")
	require.Error(t, err)
	assert.Equal(t, weather.KindAPI, weather.KindOf(err))
	assert.NotContains(t, err.Error(), testAPIKey)
}

func TestClient_CurrentConditions_CircuitOpen(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.CurrentConditions(context.Background(), "IHERNE113")
		require.Error(t, err)
	}

	_, err := client.CurrentConditions(context.Background(), "IHERNE113")
	require.Error(t, err)
	assert.Equal(t, weather.KindAPI, weather.KindOf(err))
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_CurrentConditions_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server.URL).CurrentConditions(ctx, "IHERNE113")
	require.Error(t, err)
	assert.Equal(t, weather.KindAPI, weather.KindOf(err))
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(herneResponse))
	}))
	defer server.Close()

	client := wunderground.NewClient(wunderground.ClientConfig{
		APIKey:            testAPIKey,
		BaseURL:           server.URL,
		RequestsPerMinute: 1,
		Logger:            zerolog.Nop(),
	})

	_, err := client.CurrentConditions(context.Background(), "IHERNE113")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	_, err = client.CurrentConditions(ctx, "IHERNE113")
	require.Error(t, err, "quota is exhausted for the next minute")
	assert.Equal(t, weather.KindAPI, weather.KindOf(err))
	assert.Less(t, time.Since(start), time.Second, "a wait past the deadline fails without waiting")
}
