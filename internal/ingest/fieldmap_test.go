package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPayload_CanonicalFields(t *testing.T) {
	sample, err := MapPayload(4, map[string]interface{}{
		"timestamp":           "2026-03-14T11:30:00Z",
		"ac_power_kw":         812.5,
		"dc_power_kw":         850.0,
		"irradiance_wm2":      940.0,
		"ambient_temp_c":      18.5,
		"module_temp_c":       41.2,
		"wind_speed_ms":       3.4,
		"inverter_efficiency": 98.1,
		"system_availability": 100.0,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4), sample.FarmID)
	assert.Equal(t, time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC), sample.Timestamp)
	assert.Equal(t, 812.5, sample.ACPowerKW)
	assert.Equal(t, 850.0, sample.DCPowerKW)
	assert.Equal(t, 940.0, sample.IrradianceWM2)
	assert.Equal(t, 18.5, sample.AmbientTempC)
	assert.Equal(t, 41.2, sample.ModuleTempC)
	assert.Equal(t, 3.4, sample.WindSpeedMS)
	assert.Equal(t, 98.1, sample.InverterEfficiency)
	assert.Equal(t, 100.0, sample.SystemAvailability)
}

func TestMapPayload_VendorAliases(t *testing.T) {
	sample, err := MapPayload(1, map[string]interface{}{
		"ts":      "2026-03-14T11:30:00Z",
		"P_AC":    120.0,
		"P_DC":    128.0,
		"GHI":     650.0,
		"T_amb":   19.0,
		"T_mod":   38.0,
		"WS":      2.1,
		"inv_eff": 97.5,
	})
	require.NoError(t, err)

	assert.Equal(t, 120.0, sample.ACPowerKW)
	assert.Equal(t, 128.0, sample.DCPowerKW)
	assert.Equal(t, 650.0, sample.IrradianceWM2)
	assert.Equal(t, 19.0, sample.AmbientTempC)
	assert.Equal(t, 38.0, sample.ModuleTempC)
	assert.Equal(t, 2.1, sample.WindSpeedMS)
	assert.Equal(t, 97.5, sample.InverterEfficiency)
}

func TestMapPayload_NestedDataEnvelope(t *testing.T) {
	sample, err := MapPayload(2, map[string]interface{}{
		"timestamp": "2026-03-14T11:30:00Z",
		"data": map[string]interface{}{
			"Pac":        64.2,
			"irradiance": 720.0,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 64.2, sample.ACPowerKW)
	assert.Equal(t, 720.0, sample.IrradianceWM2)
	assert.Equal(t, time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC), sample.Timestamp)
}

func TestMapPayload_MissingACPowerRejected(t *testing.T) {
	_, err := MapPayload(1, map[string]interface{}{
		"timestamp":      "2026-03-14T11:30:00Z",
		"irradiance_wm2": 500.0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ac_power_kw")
}

func TestMapPayload_TimestampFormats(t *testing.T) {
	epoch := time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		value interface{}
	}{
		{"rfc3339", "2026-03-14T11:30:00Z"},
		{"space separated", "2026-03-14 11:30:00"},
		{"unix seconds", float64(epoch.Unix())},
		{"unix millis", float64(epoch.UnixMilli())},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sample, err := MapPayload(1, map[string]interface{}{
				"timestamp":   tc.value,
				"ac_power_kw": 10.0,
			})
			require.NoError(t, err)
			assert.True(t, sample.Timestamp.Equal(epoch), "got %v", sample.Timestamp)
		})
	}
}

func TestMapPayload_MissingTimestampStampedOnArrival(t *testing.T) {
	sample, err := MapPayload(1, map[string]interface{}{
		"ac_power_kw": 55.0,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), sample.Timestamp, 5*time.Second)
}

func TestFarmIDFromTopic(t *testing.T) {
	id, err := farmIDFromTopic("telemetry/42/data")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = farmIDFromTopic("telemetry/abc/data")
	assert.Error(t, err)

	_, err = farmIDFromTopic("telemetry/data")
	assert.Error(t, err)
}
