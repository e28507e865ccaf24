package weather

import (
	"math"

	"heliotelligence/internal/domain"
)

// Validate bounds-checks a weather series before it reaches the physics
// pipeline. Irradiance, temperature and wind must sit inside physically
// plausible envelopes; any NaN that survived parsing is rejected here.
func Validate(rows []domain.WeatherSample) error {
	if len(rows) == 0 {
		return domain.NewWeatherDataError("empty weather series")
	}

	for i := range rows {
		r := &rows[i]
		for _, c := range []struct {
			name  string
			value float64
		}{
			{"ghi", r.GHI},
			{"dni", r.DNI},
			{"dhi", r.DHI},
			{"temp_air", r.TempAir},
			{"wind_speed", r.WindSpeed},
		} {
			if math.IsNaN(c.value) {
				return domain.NewWeatherDataError("column %s must be numeric", c.name)
			}
		}

		if r.GHI < 0 || r.GHI > 1500 {
			return domain.NewWeatherDataError("GHI values outside reasonable range (0-1500 W/m2)")
		}
		if r.TempAir < -50 || r.TempAir > 60 {
			return domain.NewWeatherDataError("temperature values outside reasonable range (-50 to 60 degC)")
		}
		if r.WindSpeed < 0 || r.WindSpeed > 50 {
			return domain.NewWeatherDataError("wind speed values outside reasonable range (0-50 m/s)")
		}
	}
	return nil
}
