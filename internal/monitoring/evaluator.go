package monitoring

import (
	"time"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/simulation"
)

// Defaults applied when a telemetry sensor reading is absent or zero.
// Monitoring stays resilient to partial sensor data: a farm reporting only
// AC power still gets a plausible clear-sky expectation.
const (
	defaultGHI     = 500.0
	defaultDNI     = 400.0
	defaultDHI     = 100.0
	defaultTempAir = 20.0
	defaultWind    = 3.0

	dniFraction = 0.8
	dhiFraction = 0.2
)

// SynthesizeWeather builds the single weather row the expected-power
// computation runs on. Measured irradiance is decomposed with fixed
// beam/diffuse fractions; missing readings fall back to defaults.
func SynthesizeWeather(sample domain.TelemetrySample, at time.Time) domain.WeatherSample {
	row := domain.WeatherSample{
		Timestamp: at,
		GHI:       defaultGHI,
		DNI:       defaultDNI,
		DHI:       defaultDHI,
		TempAir:   defaultTempAir,
		WindSpeed: defaultWind,
	}
	if sample.IrradianceWM2 > 0 {
		row.GHI = sample.IrradianceWM2
		row.DNI = sample.IrradianceWM2 * dniFraction
		row.DHI = sample.IrradianceWM2 * dhiFraction
	}
	if sample.AmbientTempC != 0 {
		row.TempAir = sample.AmbientTempC
	}
	if sample.WindSpeedMS != 0 {
		row.WindSpeed = sample.WindSpeedMS
	}
	return row
}

// ExpectedPowerKW runs the physics pipeline over one synthesized row and
// returns the expected AC power in kW: instantaneous DC power scaled by the
// farm's nominal inverter efficiency and the reported system availability.
func ExpectedPowerKW(sim *simulation.Simulator, sample domain.TelemetrySample, at time.Time) (float64, error) {
	rows := []domain.WeatherSample{SynthesizeWeather(sample, at)}

	sim.CalculateIrradiance(rows)
	sim.CalculateCellTemperature(rows)
	sim.CalculateDCPower(rows)
	if err := simulation.Verify(rows); err != nil {
		return 0, err
	}

	expectedKW := rows[0].DCPower / 1000
	expectedKW *= sim.Config().Inverter.Efficiency / 100

	availability := sample.SystemAvailability
	if availability == 0 {
		availability = 100
	}
	expectedKW *= availability / 100

	return expectedKW, nil
}
