package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/repository"
	"heliotelligence/internal/service"
	"heliotelligence/internal/ws"
)

type stubWeather struct {
	rows []domain.WeatherSample
	err  error
}

func (s *stubWeather) FetchTMY(ctx context.Context, latitude, longitude float64, site *time.Location) ([]domain.WeatherSample, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func daylightSeries() []domain.WeatherSample {
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	rows := make([]domain.WeatherSample, 0, 48)
	for i := 0; i < 48; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		row := domain.WeatherSample{Timestamp: ts, TempAir: 15, WindSpeed: 3}
		if h := ts.Hour(); h >= 8 && h <= 16 {
			row.GHI = 500
			row.DNI = 400
			row.DHI = 100
		}
		rows = append(rows, row)
	}
	return rows
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubWeather) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	writer := service.NewBatchWriter(repo, 100, time.Hour)
	hub := ws.NewHub()
	monitoring := service.NewMonitoringService(repo, repo, repo, writer, nil, hub)
	weather := &stubWeather{rows: daylightSeries()}
	prediction := service.NewPredictionService(weather)

	t.Cleanup(func() {
		monitoring.Close()
		writer.Close()
	})

	r := gin.New()
	r.Use(gin.Recovery(), Logger(), CORS(), Metrics())
	SetupRoutes(r, monitoring, prediction, repo, ws.NewHandler(hub))
	return r, weather
}

func performRequest(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func plantPayload() gin.H {
	return gin.H{
		"location": gin.H{"latitude": 51.5, "longitude": -0.12, "altitude": 35},
		"array": gin.H{
			"tilt":      30,
			"azimuth":   180,
			"stringing": gin.H{"modules_per_string": 20, "strings_per_inverter": 10},
		},
		"module_params":   gin.H{"power": 400, "temp_coefficient": -0.35},
		"inverter_params": gin.H{"power": 50000, "efficiency": 98},
	}
}

func farmPayload() gin.H {
	p := plantPayload()
	p["name"] = "Kent Solar Park"
	p["capacity_kw"] = 100
	return p
}

func telemetryPayload(ts time.Time, ac float64) gin.H {
	return gin.H{
		"timestamp":           ts.Format(time.RFC3339),
		"ac_power_kw":         ac,
		"irradiance_wm2":      800,
		"ambient_temp_c":      18,
		"wind_speed_ms":       3,
		"system_availability": 100,
	}
}

func registerFarm(t *testing.T, r http.Handler) int64 {
	t.Helper()
	w := performRequest(t, r, http.MethodPost, "/api/v1/farms", farmPayload())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	return int64(body["farm_id"].(float64))
}

func TestRootEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Heliotelligence API", body["message"])
	assert.Equal(t, "1.0.0", body["version"])
	endpoints := body["endpoints"].(map[string]interface{})
	assert.Equal(t, "/api/v1/predict", endpoints["prediction"])
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "heliotelligence-api", body["service"])
}

func TestRegisterFarm(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms", farmPayload())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["farm_id"])
	assert.Equal(t, "Kent Solar Park", body["name"])
	assert.Equal(t, "registered", body["status"])
	assert.Equal(t, "Solar farm 'Kent Solar Park' registered successfully", body["message"])
}

func TestRegisterFarmInvalidConfig(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := farmPayload()
	payload["array"] = gin.H{
		"tilt":      120,
		"azimuth":   180,
		"stringing": gin.H{"modules_per_string": 20, "strings_per_inverter": 10},
	}
	w := performRequest(t, r, http.MethodPost, "/api/v1/farms", payload)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["error"], "tilt")
}

func TestRegisterFarmMalformedJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON", decode(t, w)["error"])
}

func TestListFarms(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	w := performRequest(t, r, http.MethodGet, "/api/v1/farms", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var farms []domain.FarmSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &farms))
	require.Len(t, farms, 1)
	assert.Equal(t, "Kent Solar Park", farms[0].Name)
	assert.Equal(t, 100.0, farms[0].CapacityKW)
	assert.Equal(t, 51.5, farms[0].Location.Latitude)
}

func TestIngestTelemetry(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/1/data", telemetryPayload(time.Now().UTC(), 50))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Data ingested successfully", body["message"])
	assert.Equal(t, float64(1), body["farm_id"])

	analysis := body["analysis"].(map[string]interface{})
	assert.Equal(t, "success", analysis["status"])
	assert.NotEmpty(t, analysis["alert_level"])
	assert.Equal(t, 50.0, analysis["actual_power_kw"])
}

func TestIngestMissingACPower(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	payload := telemetryPayload(time.Now().UTC(), 0)
	delete(payload, "ac_power_kw")
	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/1/data", payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ac_power_kw is required", decode(t, w)["error"])
}

func TestIngestUnknownFarm(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/99/data", telemetryPayload(time.Now().UTC(), 50))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestBadFarmID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/abc/data", telemetryPayload(time.Now().UTC(), 50))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid farm id", decode(t, w)["error"])
}

func TestAnalyzeNoRecentData(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/1/analyze", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "no_data", body["status"])
	assert.Equal(t, "No recent data available", body["message"])
}

func TestAnalyzeWithRecentData(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/1/data", telemetryPayload(time.Now().UTC(), 50))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(t, r, http.MethodPost, "/api/v1/farms/1/analyze", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, int64(1), result.FarmID)
	assert.Equal(t, 50.0, result.ActualPowerKW)
	assert.NotEmpty(t, result.AlertLevel)
	assert.NotEmpty(t, result.Message)
}

func TestAnalyzeUnknownFarm(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/42/analyze", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboard(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	now := time.Now().UTC()
	for _, p := range []struct {
		ts time.Time
		ac float64
	}{
		{now.Add(-time.Hour), 40},
		{now.Add(-30 * time.Minute), 60},
	} {
		w := performRequest(t, r, http.MethodPost, "/api/v1/farms/1/data", telemetryPayload(p.ts, p.ac))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := performRequest(t, r, http.MethodGet, "/api/v1/farms/1/monitoring?hours=24", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dashboard domain.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	assert.Equal(t, int64(1), dashboard.FarmInfo.ID)
	assert.Equal(t, "Kent Solar Park", dashboard.FarmInfo.Name)
	assert.Equal(t, 51.5, dashboard.FarmInfo.Location.Latitude)
	require.Len(t, dashboard.PowerData, 2)
	assert.Equal(t, 40.0, dashboard.PowerData[0].ACPowerKW)
	assert.Equal(t, 60.0, dashboard.Summary.CurrentPowerKW)
	assert.Equal(t, 60.0, dashboard.Summary.PeakPower24hKW)
	require.NotNil(t, dashboard.Summary.LastUpdated)
}

func TestDashboardUnknownFarm(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/api/v1/farms/7/monitoring", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveAlertFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	// Zero output always grades as a critical deviation, day or night.
	w := performRequest(t, r, http.MethodPost, "/api/v1/farms/1/data", telemetryPayload(time.Now().UTC(), 0))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(t, r, http.MethodGet, "/api/v1/farms/1/monitoring", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dashboard domain.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))
	require.NotEmpty(t, dashboard.Alerts)
	alertID := dashboard.Alerts[0].ID

	w = performRequest(t, r, http.MethodPut, "/api/v1/alerts/"+alertID+"/resolve", gin.H{"resolved_by": "ops-team"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "resolved", body["status"])
	assert.Equal(t, "Alert "+alertID+" resolved", body["message"])
	alert := body["alert"].(map[string]interface{})
	assert.Equal(t, true, alert["is_resolved"])
	assert.Equal(t, "ops-team", alert["resolved_by"])

	w = performRequest(t, r, http.MethodPut, "/api/v1/alerts/"+alertID+"/resolve", gin.H{"resolved_by": "ops-team"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResolveAlertUnknownID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPut, "/api/v1/alerts/not-an-alert/resolve", gin.H{"resolved_by": "ops-team"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveAlertMissingResolvedBy(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPut, "/api/v1/alerts/abc/resolve", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "resolved_by is required", decode(t, w)["error"])
}

func TestCatalogModules(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/api/v1/catalog/modules", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(8), body["count"])
	modules := body["modules"].([]interface{})
	require.Len(t, modules, 8)
	first := modules[0].(map[string]interface{})
	assert.NotEmpty(t, first["model_name"])
}

func TestCatalogInverters(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/api/v1/catalog/inverters", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(8), body["count"])
	require.Len(t, body["inverters"].([]interface{}), 8)
}

func TestPredict(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPost, "/api/v1/predict", plantPayload())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result domain.SimulationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Greater(t, result.AnnualEnergyKWh, 0.0)
	assert.Greater(t, result.PerformanceRatio, 0.0)
	assert.LessOrEqual(t, result.PerformanceRatio, 1.0)
	require.Len(t, result.MonthlyEnergyKWh, 12)
	assert.Contains(t, result.LossBreakdownKWh, "soiling_loss_kwh")
	assert.Contains(t, result.LossBreakdownKWh, "inverter_loss_kwh")
}

func TestPredictWeatherFailure(t *testing.T) {
	r, weather := newTestRouter(t)
	weather.err = domain.NewWeatherDataError("PVGIS request failed")

	w := performRequest(t, r, http.MethodPost, "/api/v1/predict", plantPayload())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Failed to fetch weather data")
}

func TestPredictInvalidConfig(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := plantPayload()
	payload["inverter_params"] = gin.H{"power": 50000, "efficiency": 180}
	w := performRequest(t, r, http.MethodPost, "/api/v1/predict", payload)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["error"], "efficiency")
}

func TestPredictMalformedJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodPost, "/api/v1/predict", `not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	registerFarm(t, r)

	w := performRequest(t, r, http.MethodGet, "/api/v1/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	svc := body["service"].(map[string]interface{})
	assert.Equal(t, "memory", svc["database_type"])
	assert.Contains(t, body, "writer")
	assert.Contains(t, body, "cache")
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# HELP")
}

func TestRequestIDHeader(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/health", nil)

	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodOptions, "/api/v1/farms", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownAPIRoute(t *testing.T) {
	r, _ := newTestRouter(t)

	w := performRequest(t, r, http.MethodGet, "/api/v1/nothing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "endpoint not found", decode(t, w)["error"])
}
