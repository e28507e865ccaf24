package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/repository"
	"heliotelligence/internal/service"
)

// Handler handles HTTP requests
type Handler struct {
	monitoring *service.MonitoringService
	prediction *service.PredictionService
	catalog    repository.CatalogRepository
}

// NewHandler creates a new handler
func NewHandler(monitoring *service.MonitoringService, prediction *service.PredictionService, catalog repository.CatalogRepository) *Handler {
	return &Handler{
		monitoring: monitoring,
		prediction: prediction,
		catalog:    catalog,
	}
}

// LossParamsRequest carries the optional loss percentages. Omitted fields
// take the standard defaults, so zero must stay distinguishable from absent.
type LossParamsRequest struct {
	Soiling      *float64 `json:"soiling"`
	Shading      *float64 `json:"shading"`
	Snow         *float64 `json:"snow"`
	Mismatch     *float64 `json:"mismatch"`
	Wiring       *float64 `json:"wiring"`
	Connections  *float64 `json:"connections"`
	LID          *float64 `json:"lid"`
	Nameplate    *float64 `json:"nameplate"`
	Age          *float64 `json:"age"`
	Availability *float64 `json:"availability"`
}

func (r *LossParamsRequest) toDomain() domain.LossParams {
	d := domain.DefaultLossParams()
	if r == nil {
		return d
	}
	return domain.LossParams{
		Soiling:      pick(r.Soiling, d.Soiling),
		Shading:      pick(r.Shading, d.Shading),
		Snow:         pick(r.Snow, d.Snow),
		Mismatch:     pick(r.Mismatch, d.Mismatch),
		Wiring:       pick(r.Wiring, d.Wiring),
		Connections:  pick(r.Connections, d.Connections),
		LID:          pick(r.LID, d.LID),
		Nameplate:    pick(r.Nameplate, d.Nameplate),
		Age:          pick(r.Age, d.Age),
		Availability: pick(r.Availability, d.Availability),
	}
}

// PredictionRequest is the plant configuration accepted by the predict
// endpoint.
type PredictionRequest struct {
	Location domain.SiteConfig     `json:"location"`
	Array    domain.ArrayConfig    `json:"array"`
	Module   domain.ModuleParams   `json:"module_params"`
	Inverter domain.InverterParams `json:"inverter_params"`
	Losses   *LossParamsRequest    `json:"loss_params"`
}

func (r *PredictionRequest) toConfig() domain.PlantConfig {
	return domain.PlantConfig{
		Location: r.Location,
		Array:    r.Array,
		Module:   r.Module,
		Inverter: r.Inverter,
		Losses:   r.Losses.toDomain(),
	}
}

// FarmRequest is the registration payload: a plant configuration plus a
// name and nameplate capacity.
type FarmRequest struct {
	Name       string                `json:"name"`
	CapacityKW float64               `json:"capacity_kw"`
	Location   domain.SiteConfig     `json:"location"`
	Array      domain.ArrayConfig    `json:"array"`
	Module     domain.ModuleParams   `json:"module_params"`
	Inverter   domain.InverterParams `json:"inverter_params"`
	Losses     *LossParamsRequest    `json:"loss_params"`
}

func (r *FarmRequest) toFarm() *domain.SolarFarm {
	return &domain.SolarFarm{
		Name:       r.Name,
		CapacityKW: r.CapacityKW,
		Config: domain.PlantConfig{
			Location: r.Location,
			Array:    r.Array,
			Module:   r.Module,
			Inverter: r.Inverter,
			Losses:   r.Losses.toDomain(),
		},
	}
}

// TelemetryRequest is one live measurement. ac_power_kw is mandatory but a
// reported zero is a legitimate reading, so it binds through a pointer.
type TelemetryRequest struct {
	Timestamp          time.Time `json:"timestamp"`
	ACPowerKW          *float64  `json:"ac_power_kw"`
	DCPowerKW          float64   `json:"dc_power_kw"`
	IrradianceWM2      float64   `json:"irradiance_wm2"`
	AmbientTempC       float64   `json:"ambient_temp_c"`
	ModuleTempC        float64   `json:"module_temp_c"`
	WindSpeedMS        float64   `json:"wind_speed_ms"`
	InverterEfficiency float64   `json:"inverter_efficiency"`
	SystemAvailability *float64  `json:"system_availability"`
}

func (r *TelemetryRequest) toSample() domain.TelemetrySample {
	sample := domain.TelemetrySample{
		Timestamp:          r.Timestamp,
		DCPowerKW:          r.DCPowerKW,
		IrradianceWM2:      r.IrradianceWM2,
		AmbientTempC:       r.AmbientTempC,
		ModuleTempC:        r.ModuleTempC,
		WindSpeedMS:        r.WindSpeedMS,
		InverterEfficiency: r.InverterEfficiency,
		SystemAvailability: pick(r.SystemAvailability, 100),
	}
	if r.ACPowerKW != nil {
		sample.ACPowerKW = *r.ACPowerKW
	}
	return sample
}

// ResolveRequest identifies who resolved an alert.
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// Root handles GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":     "Heliotelligence API",
		"version":     "1.0.0",
		"description": "Physics-based solar energy prediction and monitoring platform",
		"endpoints": gin.H{
			"prediction": "/api/v1/predict",
			"monitoring": "/api/v1/farms",
			"metrics":    "/metrics",
			"health":     "/health",
		},
	})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "heliotelligence-api",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Predict handles POST /api/v1/predict
func (h *Handler) Predict(c *gin.Context) {
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	result, err := h.prediction.Predict(c.Request.Context(), req.toConfig())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterFarm handles POST /api/v1/farms
func (h *Handler) RegisterFarm(c *gin.Context) {
	var req FarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	farm := req.toFarm()
	if err := h.monitoring.RegisterFarm(c.Request.Context(), farm); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"farm_id": farm.ID,
		"name":    farm.Name,
		"status":  "registered",
		"message": fmt.Sprintf("Solar farm '%s' registered successfully", farm.Name),
	})
}

// ListFarms handles GET /api/v1/farms
func (h *Handler) ListFarms(c *gin.Context) {
	farms, err := h.monitoring.ListFarms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, farms)
}

// IngestData handles POST /api/v1/farms/:id/data
func (h *Handler) IngestData(c *gin.Context) {
	farmID, ok := farmIDParam(c)
	if !ok {
		return
	}

	var req TelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.ACPowerKW == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ac_power_kw is required"})
		return
	}

	analysis, err := h.monitoring.Ingest(c.Request.Context(), farmID, req.toSample())
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Data ingested successfully",
		"farm_id":   farmID,
		"timestamp": req.Timestamp,
		"analysis":  analysis,
	})
}

// GetDashboard handles GET /api/v1/farms/:id/monitoring
func (h *Handler) GetDashboard(c *gin.Context) {
	farmID, ok := farmIDParam(c)
	if !ok {
		return
	}

	dashboard, err := h.monitoring.Dashboard(c.Request.Context(), farmID, getIntParam(c, "hours", 24))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// AnalyzePerformance handles POST /api/v1/farms/:id/analyze
func (h *Handler) AnalyzePerformance(c *gin.Context) {
	farmID, ok := farmIDParam(c)
	if !ok {
		return
	}

	result, err := h.monitoring.Analyze(c.Request.Context(), farmID, time.Time{})
	if err != nil {
		if errors.Is(err, domain.ErrNoRecentData) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "no_data",
				"message": "No recent data available",
			})
			return
		}
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ResolveAlert handles PUT /api/v1/alerts/:id/resolve
func (h *Handler) ResolveAlert(c *gin.Context) {
	alertID := c.Param("id")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.ResolvedBy == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resolved_by is required"})
		return
	}

	alert, err := h.monitoring.ResolveAlert(c.Request.Context(), alertID, req.ResolvedBy)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "resolved",
		"message": fmt.Sprintf("Alert %s resolved", alert.ID),
		"alert":   alert,
	})
}

// GetModules handles GET /api/v1/catalog/modules
func (h *Handler) GetModules(c *gin.Context) {
	modules, err := h.catalog.Modules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(modules),
		"modules": modules,
	})
}

// GetInverters handles GET /api/v1/catalog/inverters
func (h *Handler) GetInverters(c *gin.Context) {
	inverters, err := h.catalog.Inverters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     len(inverters),
		"inverters": inverters,
	})
}

// GetStats handles GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.monitoring.Stats(),
		"writer":  h.monitoring.WriterStats(),
		"cache":   h.monitoring.CacheStats(),
	})
}

// renderError maps domain errors onto HTTP statuses.
func renderError(c *gin.Context, err error) {
	var cfgErr *domain.ConfigurationError
	var weatherErr *domain.WeatherDataError
	var physicsErr *domain.PhysicsError

	switch {
	case errors.Is(err, domain.ErrFarmNotFound), errors.Is(err, domain.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlertAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &weatherErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to fetch weather data: " + err.Error()})
	case errors.As(err, &physicsErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Physics simulation failed: " + err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Helper functions

func farmIDParam(c *gin.Context) (int64, bool) {
	farmID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid farm id"})
		return 0, false
	}
	return farmID, true
}

func getIntParam(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func pick(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}
