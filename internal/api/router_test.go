package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwscontext/pwscontext/internal/api"
	"github.com/pwscontext/pwscontext/internal/api/middleware"
	"github.com/pwscontext/pwscontext/internal/api/models"
	"github.com/pwscontext/pwscontext/internal/provider/resilience"
	"github.com/pwscontext/pwscontext/internal/weather"
	"github.com/pwscontext/pwscontext/internal/weather/wunderground"
)

const herneEntityID = "urn:ngsi-ld:WeatherObserved:IHERNE113"

// herneRecord renders the canonical Herne station response with the given wind direction.
func herneRecord(winddir string) string {
	return fmt.Sprintf(`{"observations":[{"stationID":"IHERNE113","obsTimeUtc":"2020-01-14T12:46:10Z",`+
		`"obsTimeLocal":"2020-01-14 13:46:10","neighborhood":"Herne","softwareType":"EasyWeatherV1.4.3",`+
		`"country":"DE","solarRadiation":58.1,"lon":7.20648146,"realtimeFrequency":null,"epoch":1579005970,`+
		`"lat":51.54059601,"uv":0.0,"winddir":%s,"humidity":86,"qcStatus":1,"metric":{"temp":9,"heatIndex":9,`+
		`"dewpt":7,"windChill":6,"windSpeed":22,"windGust":31,"pressure":1004.44,"precipRate":0.00,`+
		`"precipTotal":0.51,"elev":58}}]}`, winddir)
}

// upstream is a stub PWS API.
type upstream struct {
	*httptest.Server
	calls atomic.Int32
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

// herneUpstream serves the canonical record for IHERNE113 and 404 for every other station.
func herneUpstream(t *testing.T) *upstream {
	return newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("stationId") != "IHERNE113" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		_, _ = w.Write([]byte(herneRecord("231")))
	})
}

type routerOption func(*api.RouterConfig)

func newTestRouter(t *testing.T, upstreamURL string, opts ...routerOption) http.Handler {
	t.Helper()
	logger := zerolog.Nop()

	registry := resilience.NewRegistry()
	httpConfig := resilience.DefaultClientConfig(wunderground.ProviderName)
	httpConfig.Timeout = 2 * time.Second
	httpConfig.Registry = registry

	client := wunderground.NewClient(wunderground.ClientConfig{
		APIKey:            "0123456789abcdef0123456789abcdef",
		BaseURL:           upstreamURL,
		HTTPClient:        resilience.NewClient(httpConfig),
		RequestsPerMinute: 60000,
		Burst:             100,
		Logger:            logger,
	})

	service := weather.NewService(weather.ServiceConfig{
		Provider: client,
		Cache: weather.NewConditionsCache(weather.CacheConfig{
			Enabled: true,
			TTL:     time.Minute,
			Logger:  logger,
		}),
		Logger: logger,
	})

	cfg := api.RouterConfig{
		Version:   "test",
		BuildTime: "2024-01-01T00:00:00Z",
		Logger:    logger,
		Service:   service,
		Registry:  registry,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return api.NewRouter(cfg)
}

func query(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v2/op/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEntities(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var entities []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entities))
	return entities
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func value(t *testing.T, entity map[string]any, name string) any {
	t.Helper()
	attr, ok := entity[name].(map[string]any)
	require.True(t, ok, "attribute %s missing", name)
	return attr["value"]
}

func TestQuery_FullProjection(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL)

	w := query(t, router, `{"entities":[{"id":"`+herneEntityID+`","type":"WeatherObserved"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	entities := decodeEntities(t, w)
	require.Len(t, entities, 1)
	entity := entities[0]

	assert.Subset(t, keys(entity), []string{
		"id", "type", "dataProvider", "location", "dateObserved", "dewPoint", "temperature",
		"relativeHumidity", "precipitation", "windDirection", "windSpeed", "atmosphericPressure",
		"solarRadiation",
	})
	assert.Equal(t, herneEntityID, entity["id"])
	assert.Equal(t, "WeatherObserved", entity["type"])

	location, ok := value(t, entity, "location").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Point", location["type"])
	assert.Equal(t, []any{7.20648146, 51.54059601, 58.0}, location["coordinates"])

	assert.Equal(t, 0.86, value(t, entity, "relativeHumidity"))
	assert.InDelta(t, 6.1111111, value(t, entity, "windSpeed"), 1e-6)
	assert.Equal(t, "2020-01-14T12:46:10.000Z", value(t, entity, "dateObserved"))
	assert.Equal(t, weather.DataProviderURL, value(t, entity, "dataProvider"))
}

func TestQuery_AttributeFilter(t *testing.T) {
	tests := []struct {
		name  string
		attrs string
	}{
		{"known attributes", `["windDirection","atmosphericPressure"]`},
		{"unknown attribute ignored", `["windDirection","atmosphericPressure","someUnknownAttribute"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, herneUpstream(t).URL)

			w := query(t, router, `{"entities":[{"id":"`+herneEntityID+`","type":"WeatherObserved"}],"attrs":`+tt.attrs+`}`)

			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `[{
				"id": "urn:ngsi-ld:WeatherObserved:IHERNE113",
				"type": "WeatherObserved",
				"windDirection": {"type": "Number", "value": 231},
				"atmosphericPressure": {"type": "Number", "value": 1004.44}
			}]`, w.Body.String())

			body := w.Body.String()
			assert.Less(t, strings.Index(body, "windDirection"), strings.Index(body, "atmosphericPressure"),
				"attributes follow the order of attrs")
		})
	}
}

func TestQuery_EmptyAttrsKeepsIdentity(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL)

	w := query(t, router, `{"entities":[{"id":"`+herneEntityID+`","type":"WeatherObserved"}],"attrs":[]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"urn:ngsi-ld:WeatherObserved:IHERNE113","type":"WeatherObserved"}]`, w.Body.String())
}

func TestQuery_NoEntities(t *testing.T) {
	up := herneUpstream(t)
	router := newTestRouter(t, up.URL)

	w := query(t, router, `{"entities":[]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Zero(t, up.calls.Load())
}

func TestQuery_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong entity type", `{"entities":[{"id":"` + herneEntityID + `","type":"ParkingLot"}]}`},
		{"malformed json", `{"entities":[`},
		{"not an object", `[]`},
		{"missing entities", `{"attrs":["temperature"]}`},
		{"entity without id", `{"entities":[{"type":"WeatherObserved"}]}`},
		{"entity without type", `{"entities":[{"id":"` + herneEntityID + `"}]}`},
		{"id without station", `{"entities":[{"id":"urn:ngsi-ld:WeatherObserved","type":"WeatherObserved"}]}`},
		{"id with empty station", `{"entities":[{"id":"urn:ngsi-ld:WeatherObserved:","type":"WeatherObserved"}]}`},
		{
			"later entity of wrong type",
			`{"entities":[{"id":"` + herneEntityID + `","type":"WeatherObserved"},{"id":"urn:ngsi-ld:ParkingLot:P1","type":"ParkingLot"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, herneUpstream(t).URL)

			w := query(t, router, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, w.Body.String())
			assert.Empty(t, w.Header().Get("Content-Type"))
		})
	}
}

func TestQuery_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantKind   string
	}{
		{
			name: "station not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantKind:   "NotFound",
		},
		{
			name: "invalid upstream data",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(herneRecord("-1")))
			},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "ValueError",
		},
		{
			name: "wrong content type",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = w.Write([]byte(herneRecord("231")))
			},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "APIError",
		},
		{
			name: "upstream error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("stack trace of the upstream"))
			},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "APIError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, newUpstream(t, tt.handler).URL)

			w := query(t, router, `{"entities":[{"id":"`+herneEntityID+`","type":"WeatherObserved"}]}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.wantKind+`"}`, w.Body.String())
		})
	}
}

func TestQuery_FirstFailureEndsRequest(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL)

	w := query(t, router, `{"entities":[`+
		`{"id":"`+herneEntityID+`","type":"WeatherObserved"},`+
		`{"id":"urn:ngsi-ld:WeatherObserved:IUNKNOWN1","type":"WeatherObserved"}]}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"NotFound"}`, w.Body.String())
}

func TestQuery_PreservesEntityOrder(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		station := r.URL.Query().Get("stationId")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Replace(herneRecord("231"), "IHERNE113", station, 1)))
	})
	router := newTestRouter(t, up.URL)

	w := query(t, router, `{"entities":[`+
		`{"id":"urn:ngsi-ld:WeatherObserved:IB","type":"WeatherObserved"},`+
		`{"id":"urn:ngsi-ld:WeatherObserved:IA","type":"WeatherObserved"}],"attrs":["temperature"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"id":"urn:ngsi-ld:WeatherObserved:IB","type":"WeatherObserved","temperature":{"type":"Number","value":9}},
		{"id":"urn:ngsi-ld:WeatherObserved:IA","type":"WeatherObserved","temperature":{"type":"Number","value":9}}
	]`, w.Body.String())
}

func TestQuery_ServesRepeatedStationFromCache(t *testing.T) {
	up := herneUpstream(t)
	router := newTestRouter(t, up.URL)

	body := `{"entities":[{"id":"` + herneEntityID + `","type":"WeatherObserved"}]}`
	first := query(t, router, body)
	second := query(t, router, body)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestQuery_AbortedRequestsDoNotOpenCircuit(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(herneRecord("231")))
	})
	router := newTestRouter(t, up.URL)
	body := `{"entities":[{"id":"` + herneEntityID + `","type":"WeatherObserved"}]}`

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		req := httptest.NewRequest(http.MethodPost, "/v2/op/query", strings.NewReader(body)).WithContext(ctx)
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(httptest.NewRecorder(), req)
		cancel()
	}

	w := query(t, router, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeEntities(t, w), 1)
}

func TestQuery_DeadlineBoundsUpstreamWork(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(herneRecord("231")))
	})
	router := newTestRouter(t, up.URL, func(cfg *api.RouterConfig) {
		cfg.QueryTimeout = 50 * time.Millisecond
	})

	start := time.Now()
	w := query(t, router, `{"entities":[{"id":"`+herneEntityID+`","type":"WeatherObserved"}]}`)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"APIError"}`, w.Body.String())
}

func TestQuery_RateLimited(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL, func(cfg *api.RouterConfig) {
		cfg.QueryRateLimit = middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute}
	})

	body := `{"entities":[]}`
	require.Equal(t, http.StatusOK, query(t, router, body).Code)

	w := query(t, router, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestQuery_RequireTLS(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL, func(cfg *api.RouterConfig) {
		cfg.RequireTLS = true
	})

	req := httptest.NewRequest(http.MethodPost, "/v2/op/query", strings.NewReader(`{"entities":[]}`))
	req.Header.Set("X-Forwarded-Proto", "http")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQuery_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL)

	req := httptest.NewRequest(http.MethodGet, "/v2/op/query", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL)

	req := httptest.NewRequest(http.MethodGet, "/v2/ops/health", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(t, herneUpstream(t).URL)
	require.Equal(t, http.StatusOK, query(t, router, `{"entities":[{"id":"`+herneEntityID+`","type":"WeatherObserved"}]}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/v2/ops/status", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.True(t, status.Cache.Enabled)
	assert.Equal(t, 60, status.Cache.TTLSeconds)
	assert.Equal(t, 1, status.Cache.Entries)
	assert.Equal(t, 1, status.Cache.FreshEntries)

	require.Len(t, status.Providers, 1)
	provider := status.Providers[0]
	assert.Equal(t, wunderground.ProviderName, provider.Provider)
	assert.Equal(t, models.HealthStatusOK, provider.Status)
	assert.Equal(t, "closed", provider.CircuitState)
	assert.NotNil(t, provider.LastSuccessAt)
	assert.Nil(t, provider.LastFailureAt)
}

func TestRouter_SystemStatusReportsOpenCircuit(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	router := newTestRouter(t, up.URL)

	body := `{"entities":[{"id":"` + herneEntityID + `","type":"WeatherObserved"}]}`
	for i := 0; i < 6; i++ {
		w := query(t, router, body)
		require.Equal(t, http.StatusInternalServerError, w.Code)
	}
	assert.Equal(t, int32(5), up.calls.Load(), "the open circuit short-cuts the sixth fetch")

	req := httptest.NewRequest(http.MethodGet, "/v2/ops/status", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusFail, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "open", status.Providers[0].CircuitState)
	require.NotNil(t, status.Providers[0].Message)
	assert.Equal(t, resilience.ErrCircuitOpen.Error(), *status.Providers[0].Message)
}
