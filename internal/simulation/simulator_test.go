package simulation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/solar"
)

var defaultConfig = domain.PlantConfig{
	Location: domain.SiteConfig{Latitude: 51.5, Longitude: -0.12, Altitude: 35},
	Array: domain.ArrayConfig{
		Tilt:    30,
		Azimuth: 180,
		Stringing: domain.StringingConfig{
			ModulesPerString:   20,
			StringsPerInverter: 10,
		},
	},
	Module:   domain.ModuleParams{Power: 400, TempCoefficient: -0.35},
	Inverter: domain.InverterParams{Power: 50000, Efficiency: 98},
	Losses:   domain.DefaultLossParams(),
}

var noonSummer = time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)

func newSimulator(t *testing.T) *Simulator {
	t.Helper()
	sim, err := New(defaultConfig)
	require.NoError(t, err)
	return sim
}

// yearOfWeather builds an 8760-row hourly series with a day/night and
// seasonal irradiance shape.
func yearOfWeather() []domain.WeatherSample {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]domain.WeatherSample, 0, 8760)
	for h := 0; h < 8760; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		hour := float64(ts.Hour())
		doy := float64(ts.YearDay())

		ghi := 0.0
		if hour >= 6 && hour <= 18 {
			seasonal := 350 + 250*math.Sin(math.Pi*(doy-80)/365)
			ghi = seasonal * math.Sin(math.Pi*(hour-6)/12)
			if ghi < 0 {
				ghi = 0
			}
		}
		rows = append(rows, domain.WeatherSample{
			Timestamp: ts,
			GHI:       ghi,
			DNI:       ghi * 0.85,
			DHI:       ghi * 0.25,
			TempAir:   8 + 10*math.Sin(math.Pi*(doy-100)/365),
			WindSpeed: 2.5,
		})
	}
	return rows
}

func TestSimulator_NewRejectsBadConfig(t *testing.T) {
	bad := defaultConfig
	bad.Array.Tilt = 120
	_, err := New(bad)
	require.Error(t, err)
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	noZone := defaultConfig
	noZone.Location.Timezone = "Mars/Olympus"
	_, err = New(noZone)
	assert.Error(t, err)
}

func TestSimulator_RunRejectsEmptySeries(t *testing.T) {
	sim := newSimulator(t)
	_, err := sim.Run(nil)
	require.Error(t, err)
	var wErr *domain.WeatherDataError
	assert.ErrorAs(t, err, &wErr)
}

func TestSimulator_ZeroIrradianceSeries(t *testing.T) {
	sim := newSimulator(t)

	rows := make([]domain.WeatherSample, 24)
	start := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = domain.WeatherSample{Timestamp: start.Add(time.Duration(i) * time.Hour), TempAir: 15, WindSpeed: 3}
	}

	result, err := sim.Run(rows)
	require.NoError(t, err)

	for i := range rows {
		assert.Zero(t, rows[i].DCPower, "row %d", i)
	}
	assert.LessOrEqual(t, result.AnnualEnergyKWh, 0.0)
	assert.Zero(t, result.PerformanceRatio)
	for m, v := range result.MonthlyEnergyKWh {
		assert.Zero(t, v, "month %d", m+1)
	}
}

func TestSimulator_NightInputIsClampedToZeroPOA(t *testing.T) {
	sim := newSimulator(t)

	// Sensor noise at midnight must not leak into the POA columns.
	rows := []domain.WeatherSample{{
		Timestamp: time.Date(2026, 6, 21, 0, 30, 0, 0, time.UTC),
		GHI:       12, DNI: 4, DHI: 9, TempAir: 14, WindSpeed: 1,
	}}
	sim.CalculateIrradiance(rows)

	assert.Zero(t, rows[0].POAGlobal)
	assert.Zero(t, rows[0].POADirect)
	assert.Zero(t, rows[0].POADiffuse)
}

func TestSimulator_SingleRowReferenceComputation(t *testing.T) {
	sim := newSimulator(t)

	rows := []domain.WeatherSample{{
		Timestamp: noonSummer,
		GHI:       800, DNI: 800, DHI: 100,
		TempAir: 25, WindSpeed: 1,
	}}
	sim.CalculateIrradiance(rows)
	sim.CalculateCellTemperature(rows)
	sim.CalculateDCPower(rows)

	// Reference transposition from the documented model, recomputed from
	// the same solar position.
	pos := solar.PositionAt(noonSummer, 51.5, -0.12, 35)
	tilt := 30 * math.Pi / 180
	zenith := pos.ApparentZenith * math.Pi / 180
	cosAOI := math.Cos(zenith)*math.Cos(tilt) +
		math.Sin(zenith)*math.Sin(tilt)*math.Cos((pos.Azimuth-180)*math.Pi/180)
	wantBeam := 800 * math.Max(cosAOI, 0)
	wantSky := 100 * (1 + math.Cos(tilt)) / 2
	wantGround := 800 * 0.25 * (1 - math.Cos(tilt)) / 2
	wantPOA := wantBeam + wantSky + wantGround

	wantModuleTemp := wantPOA*math.Exp(-3.47-0.0594*1) + 25
	wantCellTemp := wantModuleTemp + wantPOA/1000*3
	wantDC := 400 * (wantPOA / 1000) * (1 - 0.35/100*(wantCellTemp-25))

	assert.InEpsilon(t, wantPOA, rows[0].POAGlobal, 1e-3)
	assert.InEpsilon(t, wantCellTemp, rows[0].CellTemperature, 1e-3)
	assert.InEpsilon(t, wantDC, rows[0].DCPower, 1e-3)

	// At an early-summer noon in London the panel should see a healthy
	// irradiance and run well above ambient.
	assert.Greater(t, rows[0].POAGlobal, 700.0)
	assert.Less(t, rows[0].POAGlobal, 1100.0)
	assert.Greater(t, rows[0].CellTemperature, 40.0)
	assert.Greater(t, rows[0].DCPower, 200.0)
}

func TestSimulator_DCPowerNeverNegative(t *testing.T) {
	hot := defaultConfig
	hot.Module.TempCoefficient = -1 // strongest allowed derating
	sim, err := New(hot)
	require.NoError(t, err)

	rows := []domain.WeatherSample{{
		Timestamp: noonSummer,
		GHI:       900, DNI: 850, DHI: 120,
		TempAir: 58, WindSpeed: 0, // extreme heat, no convection
	}}
	sim.CalculateIrradiance(rows)
	sim.CalculateCellTemperature(rows)
	sim.CalculateDCPower(rows)
	assert.GreaterOrEqual(t, rows[0].DCPower, 0.0)

	// A cell temperature high enough to flip the derating term negative
	// must clamp to zero rather than report negative power.
	clamped := []domain.WeatherSample{{POAGlobal: 1000, CellTemperature: 160}}
	sim.CalculateDCPower(clamped)
	assert.Zero(t, clamped[0].DCPower)
}

func TestSimulator_LossesAreAdditiveAgainstSameBase(t *testing.T) {
	cfg := defaultConfig
	cfg.Losses = domain.LossParams{Soiling: 10, Shading: 10}
	sim, err := New(cfg)
	require.NoError(t, err)

	rows := []domain.WeatherSample{{
		Timestamp: noonSummer,
		GHI:       800, DNI: 800, DHI: 100, TempAir: 20, WindSpeed: 2,
	}}
	sim.CalculateIrradiance(rows)
	sim.CalculateCellTemperature(rows)
	sim.CalculateDCPower(rows)

	ideal := rows[0].DCPower / 1000
	breakdown := sim.CalculateLosses(rows)

	// Both terms are 10% of the same base, not 10% then 10% of the rest.
	assert.InDelta(t, ideal*0.10, breakdown["soiling_loss_kwh"], 1e-9)
	assert.InDelta(t, ideal*0.10, breakdown["shading_loss_kwh"], 1e-9)
	assert.Zero(t, breakdown["snow_loss_kwh"])
	assert.Len(t, breakdown, 11)
}

func TestSimulator_FullYearRun(t *testing.T) {
	sim := newSimulator(t)

	rows := yearOfWeather()
	result, err := sim.Run(rows)
	require.NoError(t, err)

	idealKWh := 0.0
	for i := range rows {
		idealKWh += rows[i].DCPower
	}
	idealKWh /= 1000

	assert.Greater(t, result.PerformanceRatio, 0.0)
	assert.Less(t, result.PerformanceRatio, 1.2)
	assert.Less(t, result.AnnualEnergyKWh, idealKWh)
	assert.Greater(t, result.AnnualEnergyKWh, 0.0)

	// Monthly values sum to the annual total within rounding tolerance.
	sum := 0.0
	for _, v := range result.MonthlyEnergyKWh {
		sum += v
	}
	assert.InDelta(t, result.AnnualEnergyKWh, sum, 0.12)
	require.Len(t, result.MonthlyEnergyKWh, 12)
	for m, v := range result.MonthlyEnergyKWh {
		assert.Greater(t, v, 0.0, "month %d", m+1)
	}

	// Each loss is non-negative and bounded by the ideal energy.
	require.Len(t, result.LossBreakdownKWh, 11)
	for name, v := range result.LossBreakdownKWh {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, idealKWh, name)
	}
}

func TestSimulator_PurityBitwiseIdentical(t *testing.T) {
	sim := newSimulator(t)

	first, err := sim.Run(yearOfWeather())
	require.NoError(t, err)
	second, err := sim.Run(yearOfWeather())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulator_RunIsSafeForConcurrentUse(t *testing.T) {
	sim := newSimulator(t)

	results := make(chan *domain.SimulationResult, 4)
	for i := 0; i < 4; i++ {
		go func() {
			r, err := sim.Run(yearOfWeather())
			assert.NoError(t, err)
			results <- r
		}()
	}

	baseline := <-results
	for i := 0; i < 3; i++ {
		assert.Equal(t, baseline, <-results)
	}
}

func TestSimulator_OverloadedLossesGoNegativeUnclamped(t *testing.T) {
	cfg := defaultConfig
	// 10 maxed-out loss terms push the combined percentage past what the
	// inverter efficiency leaves over.
	cfg.Losses = domain.LossParams{
		Soiling: 10, Shading: 20, Snow: 5, Mismatch: 10, Wiring: 10,
		Connections: 5, LID: 5, Nameplate: 5, Age: 20, Availability: 10,
	}
	cfg.Inverter.Efficiency = 80
	sim, err := New(cfg)
	require.NoError(t, err)

	rows := yearOfWeather()[:72]
	result, err := sim.Run(rows)
	require.NoError(t, err)

	// 100% named losses + 20% inverter loss exceed the ideal energy.
	assert.Less(t, result.AnnualEnergyKWh, 0.0)
}
