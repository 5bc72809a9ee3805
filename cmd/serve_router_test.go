//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/config"
	"github.com/sells-group/saferoute/internal/forest"
	"github.com/sells-group/saferoute/internal/metrics"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/predict"
)

// testRecords places a Safe cluster near (13.0, 80.2) and a single Unsafe
// record far away.
func testRecords() []model.HistoricalRecord {
	return []model.HistoricalRecord{
		{Latitude: 13.000, Longitude: 80.200, TimeOfDay: "Evening", AreaType: "Commercial", StreetLighting: 1, CCTVNearby: 1, PoliceDistanceKM: 0.5, SafetyLevel: "Safe"},
		{Latitude: 13.001, Longitude: 80.201, TimeOfDay: "Morning", AreaType: "Commercial", StreetLighting: 1, CCTVNearby: 0, PoliceDistanceKM: 0.7, SafetyLevel: "Safe"},
		{Latitude: 13.002, Longitude: 80.199, TimeOfDay: "Evening", AreaType: "Residential", StreetLighting: 1, CCTVNearby: 1, PoliceDistanceKM: 0.4, SafetyLevel: "Safe"},
		{Latitude: 12.500, Longitude: 79.900, TimeOfDay: "Night", AreaType: "Industrial", StreetLighting: 0, CCTVNearby: 0, PoliceDistanceKM: 3.1, SafetyLevel: "Unsafe"},
	}
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{AllowedOrigins: []string{"*"}}
}

func newTestRouter(t *testing.T, sc config.ServerConfig, pc config.PredictConfig) (http.Handler, *metrics.Metrics) {
	t.Helper()
	snap, err := predict.Build(context.Background(), testRecords(), forest.Options{Trees: 10, Seed: 42}, predict.DefaultSettings())
	require.NoError(t, err)
	m := metrics.New()
	p := predict.New(snap, predict.WithRecorder(m))
	return buildRouter(p, m, sc, pc), m
}

func postPredict(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict_route", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_Home(t *testing.T) {
	h, _ := newTestRouter(t, testServerConfig(), config.PredictConfig{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Hello")
}

func TestBuildRouter_HealthEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, testServerConfig(), config.PredictConfig{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body struct {
		Status  string   `json:"status"`
		Records int      `json:"records"`
		Classes []string `json:"classes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 4, body.Records)
	assert.Equal(t, []string{"Safe", "Unsafe"}, body.Classes)
}

func TestBuildRouter_PredictVote(t *testing.T) {
	h, _ := newTestRouter(t, testServerConfig(), config.PredictConfig{})

	rr := postPredict(t, h, `{"lat": 13.0005, "lon": 80.2005}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Safe", resp.Res)
	assert.Equal(t, model.MethodVote, resp.Method)
	assert.Equal(t, 3, resp.IncidentCount)
}

func TestBuildRouter_PredictFallbackWithContext(t *testing.T) {
	h, _ := newTestRouter(t, testServerConfig(), config.PredictConfig{})

	rr := postPredict(t, h, `{"lat": 28.61, "lon": 77.21, "time_of_day": "Night", "area_type": "Industrial",
		"street_lighting": 0, "cctv_nearby": 0, "police_distance_km": 3.0}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.MethodFallback, resp.Method)
	assert.Zero(t, resp.IncidentCount)
	assert.Contains(t, []string{"Safe", "Unsafe"}, resp.Res)
}

func TestBuildRouter_PredictFillsDefaults(t *testing.T) {
	pc := config.PredictConfig{
		FillDefaults: true,
		Defaults: model.Context{
			TimeOfDay:        "Evening",
			AreaType:         "Commercial",
			StreetLighting:   1,
			CCTVNearby:       0,
			PoliceDistanceKM: 0.86,
		},
	}
	h, _ := newTestRouter(t, testServerConfig(), pc)

	rr := postPredict(t, h, `{"lat": 28.61, "lon": 77.21}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.MethodFallback, resp.Method)
}

func TestBuildRouter_PredictRejections(t *testing.T) {
	h, m := newTestRouter(t, testServerConfig(), config.PredictConfig{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"lat":`, "invalid request body"},
		{"missing lon", `{"lat": 13.0}`, "lat and lon are required"},
		{"latitude out of range", `{"lat": 123.0, "lon": 80.2}`, "latitude"},
		{"missing feature on fallback", `{"lat": 28.61, "lon": 77.21}`, "missing feature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postPredict(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.want)
			assert.NotEmpty(t, body["request_id"])
		})
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `saferoute_prediction_errors_total{kind="missing_feature"} 1`)
	assert.Contains(t, rec.Body.String(), `saferoute_prediction_errors_total{kind="degenerate_input"} 1`)
}

func TestBuildRouter_MetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, testServerConfig(), config.PredictConfig{})

	rr := postPredict(t, h, `{"lat": 13.0005, "lon": 80.2005}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `saferoute_predictions_total{method="vote"} 1`)
	assert.Contains(t, rec.Body.String(), `saferoute_http_requests_total{code="200",route="/predict_route"} 1`)
}

func TestBuildRouter_RequestID(t *testing.T) {
	h, _ := newTestRouter(t, testServerConfig(), config.PredictConfig{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rr.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(requestIDHeader))
}

func TestBuildRouter_CORSPreflight(t *testing.T) {
	sc := testServerConfig()
	sc.AllowedOrigins = []string{"http://localhost:3000"}
	h, _ := newTestRouter(t, sc, config.PredictConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/predict_route", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_RateLimit(t *testing.T) {
	sc := testServerConfig()
	sc.RateLimit = 0.001
	sc.RateBurst = 1
	h, _ := newTestRouter(t, sc, config.PredictConfig{})

	first := postPredict(t, h, `{"lat": 13.0005, "lon": 80.2005}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postPredict(t, h, `{"lat": 13.0005, "lon": 80.2005}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// Health checks are never limited.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
