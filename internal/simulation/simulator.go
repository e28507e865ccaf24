// Package simulation contains the physics engine: plane-of-array
// transposition, cell temperature, DC power and the annual yield
// aggregation. Every computation is pure and operates in place on a slice
// of weather samples, so batch runs and single-sample monitoring share one
// pipeline.
package simulation

import (
	"math"
	"time"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/solar"
)

// Empirical open-rack glass/glass thermal coefficients. Substitutable if
// mounting type ever becomes configurable.
const (
	openRackA      = -3.47
	openRackB      = -0.0594
	openRackDeltaT = 3.0
)

const (
	stcIrradiance = 1000.0 // W/m2
	stcCellTemp   = 25.0   // degC
	groundAlbedo  = 0.25
)

// lossKeys fixes the summation order of the loss breakdown so identical
// inputs always produce bitwise-identical results.
var lossKeys = []string{
	"soiling_loss_kwh",
	"shading_loss_kwh",
	"snow_loss_kwh",
	"mismatch_loss_kwh",
	"wiring_loss_kwh",
	"connections_loss_kwh",
	"lid_loss_kwh",
	"nameplate_loss_kwh",
	"age_loss_kwh",
	"availability_loss_kwh",
	"inverter_loss_kwh",
}

// Simulator runs the yield pipeline for one plant configuration. It holds
// no mutable state, so a single instance is safe for concurrent use.
type Simulator struct {
	config domain.PlantConfig
	site   *time.Location
}

// New validates the plant configuration and resolves its timezone.
func New(config domain.PlantConfig) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	site, err := time.LoadLocation(config.Location.Timezone)
	if err != nil {
		return nil, domain.NewConfigurationError("location.timezone", "unknown timezone %q", config.Location.Timezone)
	}
	return &Simulator{config: config, site: site}, nil
}

// Config returns the validated plant configuration.
func (s *Simulator) Config() domain.PlantConfig {
	return s.config
}

// Site returns the resolved site timezone.
func (s *Simulator) Site() *time.Location {
	return s.site
}

// CalculateIrradiance fills the POA columns of every row from the solar
// position and the isotropic-sky transposition. At night all POA
// components are exactly zero.
func (s *Simulator) CalculateIrradiance(rows []domain.WeatherSample) {
	tiltRad := degToRad(s.config.Array.Tilt)
	cosTilt := math.Cos(tiltRad)
	sinTilt := math.Sin(tiltRad)
	skyFactor := (1 + cosTilt) / 2
	groundFactor := groundAlbedo * (1 - cosTilt) / 2

	for i := range rows {
		pos := solar.PositionAt(rows[i].Timestamp, s.config.Location.Latitude, s.config.Location.Longitude, s.config.Location.Altitude)
		if pos.ApparentZenith >= 90 {
			rows[i].POAGlobal = 0
			rows[i].POADirect = 0
			rows[i].POADiffuse = 0
			continue
		}

		zenithRad := degToRad(pos.ApparentZenith)
		cosAOI := math.Cos(zenithRad)*cosTilt +
			math.Sin(zenithRad)*sinTilt*math.Cos(degToRad(pos.Azimuth-s.config.Array.Azimuth))

		beam := rows[i].DNI * math.Max(cosAOI, 0)
		skyDiffuse := rows[i].DHI * skyFactor
		groundReflected := rows[i].GHI * groundFactor

		rows[i].POADirect = beam
		rows[i].POADiffuse = skyDiffuse + groundReflected
		rows[i].POAGlobal = beam + skyDiffuse + groundReflected
	}
}

// CalculateCellTemperature fills the cell temperature column using the
// open-rack empirical thermal model.
func (s *Simulator) CalculateCellTemperature(rows []domain.WeatherSample) {
	for i := range rows {
		moduleTemp := rows[i].POAGlobal*math.Exp(openRackA+openRackB*rows[i].WindSpeed) + rows[i].TempAir
		rows[i].CellTemperature = moduleTemp + rows[i].POAGlobal/stcIrradiance*openRackDeltaT
	}
}

// CalculateDCPower fills the DC power column using the linearized
// temperature-corrected power law, clamped to non-negative output.
func (s *Simulator) CalculateDCPower(rows []domain.WeatherSample) {
	power := s.config.Module.Power
	gamma := s.config.Module.TempCoefficient

	for i := range rows {
		dc := power * (rows[i].POAGlobal / stcIrradiance) *
			(1 + gamma/100*(rows[i].CellTemperature-stcCellTemp))
		rows[i].DCPower = math.Max(dc, 0)
	}
}

// CalculateLosses derives the eleven-entry loss breakdown in kWh. The ten
// configured percentages are deducted against the same ideal-energy base,
// not compounded; the inverter loss uses its nominal efficiency.
func (s *Simulator) CalculateLosses(rows []domain.WeatherSample) map[string]float64 {
	idealKWh := idealEnergyKWh(rows)
	l := s.config.Losses

	breakdown := map[string]float64{
		"soiling_loss_kwh":      idealKWh * l.Soiling / 100,
		"shading_loss_kwh":      idealKWh * l.Shading / 100,
		"snow_loss_kwh":         idealKWh * l.Snow / 100,
		"mismatch_loss_kwh":     idealKWh * l.Mismatch / 100,
		"wiring_loss_kwh":       idealKWh * l.Wiring / 100,
		"connections_loss_kwh":  idealKWh * l.Connections / 100,
		"lid_loss_kwh":          idealKWh * l.LID / 100,
		"nameplate_loss_kwh":    idealKWh * l.Nameplate / 100,
		"age_loss_kwh":          idealKWh * l.Age / 100,
		"availability_loss_kwh": idealKWh * l.Availability / 100,
		"inverter_loss_kwh":     idealKWh * (1 - s.config.Inverter.Efficiency/100),
	}
	return breakdown
}

// Run executes the full batch pipeline over an hourly weather series and
// aggregates the annual yield.
func (s *Simulator) Run(rows []domain.WeatherSample) (*domain.SimulationResult, error) {
	if len(rows) == 0 {
		return nil, domain.NewWeatherDataError("empty weather series")
	}

	s.CalculateIrradiance(rows)
	s.CalculateCellTemperature(rows)
	s.CalculateDCPower(rows)
	if err := Verify(rows); err != nil {
		return nil, err
	}

	lossBreakdown := s.CalculateLosses(rows)

	idealKWh := idealEnergyKWh(rows)
	totalLosses := 0.0
	for _, k := range lossKeys {
		totalLosses += lossBreakdown[k]
	}
	// May go negative when configured losses exceed 100% combined. That is
	// a degenerate but valid result and is deliberately not clamped.
	annualKWh := idealKWh - totalLosses

	monthly := s.monthlyEnergyKWh(rows, idealKWh, annualKWh)

	// PR against total POA irradiation at the module nameplate rating.
	totalIrradiationKWh := 0.0
	for i := range rows {
		totalIrradiationKWh += rows[i].POAGlobal / 1000
	}
	theoreticalKWh := totalIrradiationKWh * s.config.Module.Power / 1000
	performanceRatio := 0.0
	if theoreticalKWh > 0 {
		performanceRatio = annualKWh / theoreticalKWh
	}

	result := &domain.SimulationResult{
		AnnualEnergyKWh:  round2(annualKWh),
		PerformanceRatio: round3(performanceRatio),
		MonthlyEnergyKWh: make([]float64, 12),
		LossBreakdownKWh: make(map[string]float64, len(lossBreakdown)),
	}
	for i, v := range monthly {
		result.MonthlyEnergyKWh[i] = round2(v)
	}
	for k, v := range lossBreakdown {
		result.LossBreakdownKWh[k] = round2(v)
	}
	return result, nil
}

// monthlyEnergyKWh groups ideal DC energy by site-local calendar month and
// scales every month by one uniform annual loss factor. Losses are spread
// proportionally across months; there is no seasonal loss modeling.
func (s *Simulator) monthlyEnergyKWh(rows []domain.WeatherSample, idealKWh, annualKWh float64) [12]float64 {
	var monthlyIdeal [12]float64
	for i := range rows {
		m := rows[i].Timestamp.In(s.site).Month()
		monthlyIdeal[int(m)-1] += rows[i].DCPower / 1000
	}

	lossFactor := 0.0
	if idealKWh > 0 {
		lossFactor = annualKWh / idealKWh
	}

	var monthly [12]float64
	for i, v := range monthlyIdeal {
		monthly[i] = v * lossFactor
	}
	return monthly
}

// idealEnergyKWh sums per-row DC power assuming hourly rows, in kWh.
func idealEnergyKWh(rows []domain.WeatherSample) float64 {
	sum := 0.0
	for i := range rows {
		sum += rows[i].DCPower
	}
	return sum / 1000
}

// Verify rejects NaN or negative values surviving the pipeline. These
// indicate a defect, not bad input, and abort the single request.
func Verify(rows []domain.WeatherSample) error {
	for i := range rows {
		if math.IsNaN(rows[i].POAGlobal) || math.IsInf(rows[i].POAGlobal, 0) || rows[i].POAGlobal < 0 {
			return domain.NewPhysicsError("irradiance", "invalid poa_global %v at row %d", rows[i].POAGlobal, i)
		}
		if math.IsNaN(rows[i].CellTemperature) || math.IsInf(rows[i].CellTemperature, 0) {
			return domain.NewPhysicsError("temperature", "invalid cell_temperature %v at row %d", rows[i].CellTemperature, i)
		}
		if math.IsNaN(rows[i].DCPower) || math.IsInf(rows[i].DCPower, 0) || rows[i].DCPower < 0 {
			return domain.NewPhysicsError("dc_power", "invalid dc_power %v at row %d", rows[i].DCPower, i)
		}
	}
	return nil
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
