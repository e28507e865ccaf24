package ingest

import (
	"fmt"
	"time"

	"heliotelligence/internal/domain"
)

// fieldAliases maps each canonical telemetry field to the vendor spellings
// seen across inverter fleets. First matching alias wins.
var fieldAliases = map[string][]string{
	"ac_power_kw":         {"ac_power_kw", "ac_power", "P_AC", "Pac", "pac", "power_kw"},
	"dc_power_kw":         {"dc_power_kw", "dc_power", "P_DC", "Pdc", "pdc"},
	"irradiance_wm2":      {"irradiance_wm2", "irradiance", "GHI", "ghi", "poa_irradiance"},
	"ambient_temp_c":      {"ambient_temp_c", "ambient_temp", "T_amb", "temp_air", "air_temperature"},
	"module_temp_c":       {"module_temp_c", "module_temp", "T_mod", "cell_temp"},
	"wind_speed_ms":       {"wind_speed_ms", "wind_speed", "WS", "ws10m"},
	"inverter_efficiency": {"inverter_efficiency", "inv_eff", "efficiency"},
	"system_availability": {"system_availability", "availability", "avail_pct"},
}

var timestampAliases = []string{"timestamp", "time", "ts"}

// MapPayload normalizes one vendor payload into a TelemetrySample. Payloads
// may nest readings under a "data" envelope. AC power is mandatory; a payload
// without a timestamp is stamped with the arrival time.
func MapPayload(farmID int64, raw map[string]interface{}) (domain.TelemetrySample, error) {
	sample := domain.TelemetrySample{FarmID: farmID}

	source := raw
	if nested, ok := raw["data"].(map[string]interface{}); ok {
		source = nested
	}

	ac, ok := lookupFloat(source, raw, fieldAliases["ac_power_kw"])
	if !ok {
		return sample, fmt.Errorf("required field missing: ac_power_kw")
	}
	sample.ACPowerKW = ac

	if v, ok := lookupFloat(source, raw, fieldAliases["dc_power_kw"]); ok {
		sample.DCPowerKW = v
	}
	if v, ok := lookupFloat(source, raw, fieldAliases["irradiance_wm2"]); ok {
		sample.IrradianceWM2 = v
	}
	if v, ok := lookupFloat(source, raw, fieldAliases["ambient_temp_c"]); ok {
		sample.AmbientTempC = v
	}
	if v, ok := lookupFloat(source, raw, fieldAliases["module_temp_c"]); ok {
		sample.ModuleTempC = v
	}
	if v, ok := lookupFloat(source, raw, fieldAliases["wind_speed_ms"]); ok {
		sample.WindSpeedMS = v
	}
	if v, ok := lookupFloat(source, raw, fieldAliases["inverter_efficiency"]); ok {
		sample.InverterEfficiency = v
	}
	if v, ok := lookupFloat(source, raw, fieldAliases["system_availability"]); ok {
		sample.SystemAvailability = v
	}

	if ts, ok := lookupTimestamp(source, raw); ok {
		sample.Timestamp = ts
	} else {
		sample.Timestamp = time.Now().UTC()
	}

	return sample, nil
}

// lookup tries the nested source first, then the payload root
func lookup(source, root map[string]interface{}, aliases []string) (interface{}, bool) {
	for _, alias := range aliases {
		if v, ok := source[alias]; ok {
			return v, true
		}
	}
	for _, alias := range aliases {
		if v, ok := root[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

func lookupFloat(source, root map[string]interface{}, aliases []string) (float64, bool) {
	v, ok := lookup(source, root, aliases)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func lookupTimestamp(source, root map[string]interface{}) (time.Time, bool) {
	v, ok := lookup(source, root, timestampAliases)
	if !ok {
		return time.Time{}, false
	}
	return parseTimestamp(v)
}

func parseTimestamp(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return t.UTC(), true
		}
	case float64:
		return unixToTime(v), true
	case int64:
		return unixToTime(float64(v)), true
	case int:
		return unixToTime(float64(v)), true
	}
	return time.Time{}, false
}

// unixToTime accepts both second and millisecond epochs
func unixToTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
