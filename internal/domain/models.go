package domain

import "time"

// SiteConfig identifies the solar geometry context of a plant.
type SiteConfig struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Timezone  string  `json:"timezone,omitempty"`
}

// StringingConfig describes the electrical layout of the array.
type StringingConfig struct {
	ModulesPerString   int `json:"modules_per_string"`
	StringsPerInverter int `json:"strings_per_inverter"`
}

// ArrayConfig describes the mechanical orientation of the array.
type ArrayConfig struct {
	Tilt      float64         `json:"tilt"`
	Azimuth   float64         `json:"azimuth"`
	Stringing StringingConfig `json:"stringing"`
}

// ModuleParams holds the module nameplate figures used by the power model.
type ModuleParams struct {
	Power           float64 `json:"power"`
	TempCoefficient float64 `json:"temp_coefficient"`
}

// InverterParams holds the inverter nameplate figures.
type InverterParams struct {
	Power      float64 `json:"power"`
	Efficiency float64 `json:"efficiency"`
}

// LossParams are ten independent percentage deductions applied against
// ideal DC energy. They are additive against the same base, not compounded.
type LossParams struct {
	Soiling      float64 `json:"soiling"`
	Shading      float64 `json:"shading"`
	Snow         float64 `json:"snow"`
	Mismatch     float64 `json:"mismatch"`
	Wiring       float64 `json:"wiring"`
	Connections  float64 `json:"connections"`
	LID          float64 `json:"lid"`
	Nameplate    float64 `json:"nameplate"`
	Age          float64 `json:"age"`
	Availability float64 `json:"availability"`
}

// DefaultLossParams returns the loss percentages assumed when a request
// omits them.
func DefaultLossParams() LossParams {
	return LossParams{
		Soiling:      2.0,
		Shading:      1.0,
		Snow:         0.5,
		Mismatch:     2.0,
		Wiring:       2.0,
		Connections:  0.5,
		LID:          1.5,
		Nameplate:    1.0,
		Age:          0.0,
		Availability: 3.0,
	}
}

// PlantConfig is the full validated plant description consumed by the
// physics pipeline.
type PlantConfig struct {
	Location SiteConfig     `json:"location"`
	Array    ArrayConfig    `json:"array"`
	Module   ModuleParams   `json:"module_params"`
	Inverter InverterParams `json:"inverter_params"`
	Losses   LossParams     `json:"loss_params"`
}

// WeatherSample is one timestamped weather row. The POA, cell temperature
// and DC power columns are derived in place by the pipeline and must not
// be supplied by callers.
type WeatherSample struct {
	Timestamp time.Time `json:"timestamp"`
	GHI       float64   `json:"ghi"`
	DNI       float64   `json:"dni"`
	DHI       float64   `json:"dhi"`
	TempAir   float64   `json:"temp_air"`
	WindSpeed float64   `json:"wind_speed"`

	POAGlobal       float64 `json:"poa_global,omitempty"`
	POADirect       float64 `json:"poa_direct,omitempty"`
	POADiffuse      float64 `json:"poa_diffuse,omitempty"`
	CellTemperature float64 `json:"cell_temperature,omitempty"`
	DCPower         float64 `json:"dc_power,omitempty"`
}

// SimulationResult is the batch yield output.
type SimulationResult struct {
	AnnualEnergyKWh  float64            `json:"annual_energy_kwh"`
	PerformanceRatio float64            `json:"performance_ratio"`
	MonthlyEnergyKWh []float64          `json:"monthly_energy_kwh"`
	LossBreakdownKWh map[string]float64 `json:"loss_breakdown_kwh"`
}

// SolarFarm is a registered plant under live monitoring.
type SolarFarm struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	CapacityKW float64     `json:"capacity_kw"`
	Config     PlantConfig `json:"config"`
	IsActive   bool        `json:"is_active"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TelemetrySample is one live measurement from a farm. ACPowerKW and
// Timestamp are mandatory; every other field is optional and defaulted
// downstream, so partial sensor data never blocks ingestion.
type TelemetrySample struct {
	FarmID             int64     `json:"farm_id"`
	Timestamp          time.Time `json:"timestamp"`
	ACPowerKW          float64   `json:"ac_power_kw"`
	DCPowerKW          float64   `json:"dc_power_kw,omitempty"`
	IrradianceWM2      float64   `json:"irradiance_wm2,omitempty"`
	AmbientTempC       float64   `json:"ambient_temp_c,omitempty"`
	ModuleTempC        float64   `json:"module_temp_c,omitempty"`
	WindSpeedMS        float64   `json:"wind_speed_ms,omitempty"`
	InverterEfficiency float64   `json:"inverter_efficiency,omitempty"`
	SystemAvailability float64   `json:"system_availability,omitempty"`
}

// TelemetryFilter narrows telemetry store queries. Nil time bounds leave
// that side of the window open.
type TelemetryFilter struct {
	FarmID    int64      `json:"farm_id"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Ascending bool       `json:"ascending,omitempty"`
	Limit     int        `json:"limit,omitempty"`
}

// PerformanceAlert records one classified deviation. Alerts start open and
// move to resolved only through an explicit resolution call.
type PerformanceAlert struct {
	ID               string     `json:"id"`
	FarmID           int64      `json:"farm_id"`
	AlertType        string     `json:"alert_type"`
	Severity         string     `json:"severity"`
	DetectedAt       time.Time  `json:"detected_at"`
	ExpectedPowerKW  float64    `json:"expected_power_kw"`
	ActualPowerKW    float64    `json:"actual_power_kw"`
	PerformanceRatio float64    `json:"performance_ratio"`
	DeviationPercent float64    `json:"deviation_percent"`
	Message          string     `json:"message"`
	Recommendations  string     `json:"recommendations"`
	IsResolved       bool       `json:"is_resolved"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy       string     `json:"resolved_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AnalysisResult is the outcome of one monitoring evaluation.
type AnalysisResult struct {
	Status           string    `json:"status"`
	FarmID           int64     `json:"farm_id"`
	AnalysisTime     time.Time `json:"analysis_time"`
	ExpectedPowerKW  float64   `json:"expected_power_kw"`
	ActualPowerKW    float64   `json:"actual_power_kw"`
	PerformanceRatio float64   `json:"performance_ratio"`
	DeviationPercent float64   `json:"deviation_percent"`
	AlertLevel       string    `json:"alert_level"`
	Message          string    `json:"message"`
}

// ModuleSpec is one catalog entry for a commercially available PV module.
type ModuleSpec struct {
	ID        int64     `json:"id"`
	ModelName string    `json:"model_name"`
	PDC0      float64   `json:"pdc0"`
	GammaPDC  float64   `json:"gamma_pdc"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InverterSpec is one catalog entry for a commercially available inverter.
type InverterSpec struct {
	ID        int64     `json:"id"`
	ModelName string    `json:"model_name"`
	PDC0      float64   `json:"pdc0"`
	EtaInvNom float64   `json:"eta_inv_nom"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationView is the coordinate pair exposed over the API.
type LocationView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DashboardFarmInfo is the farm header block of the monitoring dashboard.
type DashboardFarmInfo struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	CapacityKW float64      `json:"capacity_kw"`
	Location   LocationView `json:"location"`
}

// DashboardSummary aggregates the recent telemetry window.
type DashboardSummary struct {
	CurrentPowerKW float64 `json:"current_power_kw"`
	AvgPower24hKW  float64 `json:"avg_power_24h_kw"`
	PeakPower24hKW float64 `json:"peak_power_24h_kw"`
	LastUpdated    *string `json:"last_updated"`
	TotalAlerts    int     `json:"total_alerts"`
	ActiveAlerts   int     `json:"active_alerts"`
}

// PowerPoint is one dashboard chart sample.
type PowerPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	ACPowerKW     float64   `json:"ac_power_kw"`
	DCPowerKW     float64   `json:"dc_power_kw"`
	IrradianceWM2 float64   `json:"irradiance_wm2"`
	AmbientTempC  float64   `json:"ambient_temp_c"`
}

// AlertView is the dashboard projection of a PerformanceAlert.
type AlertView struct {
	ID               string    `json:"id"`
	AlertType        string    `json:"alert_type"`
	Severity         string    `json:"severity"`
	DetectedAt       time.Time `json:"detected_at"`
	Message          string    `json:"message"`
	ExpectedPowerKW  float64   `json:"expected_power_kw"`
	ActualPowerKW    float64   `json:"actual_power_kw"`
	DeviationPercent float64   `json:"deviation_percent"`
	IsResolved       bool      `json:"is_resolved"`
}

// Dashboard is the full monitoring dashboard payload.
type Dashboard struct {
	FarmInfo  DashboardFarmInfo `json:"farm_info"`
	Summary   DashboardSummary  `json:"summary"`
	PowerData []PowerPoint      `json:"power_data"`
	Alerts    []AlertView       `json:"alerts"`
}

// FarmSummary is the list projection of a registered farm.
type FarmSummary struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	CapacityKW float64      `json:"capacity_kw"`
	Location   LocationView `json:"location"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Stats reports service level counters.
type Stats struct {
	SamplesIngested int64   `json:"samples_ingested"`
	AnalysesRun     int64   `json:"analyses_run"`
	AlertsCreated   int64   `json:"alerts_created"`
	FailedWrites    int64   `json:"failed_writes"`
	BufferSize      int     `json:"buffer_size"`
	SuccessRate     float64 `json:"success_rate"`
	DatabaseType    string  `json:"database_type"`
}
