package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"heliotelligence/internal/config"
	"heliotelligence/internal/domain"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
)

const telemetryMeasurement = "farm_telemetry"

// InfluxRepo implements TelemetryRepository for InfluxDB
type InfluxRepo struct {
	db *config.InfluxDatabase
}

// NewInfluxRepo creates a new InfluxDB telemetry repository
func NewInfluxRepo(db *config.InfluxDatabase) *InfluxRepo {
	return &InfluxRepo{db: db}
}

// Insert writes samples to InfluxDB with defensive checks
func (r *InfluxRepo) Insert(ctx context.Context, samples []domain.TelemetrySample) error {
	// CRITICAL: Check for nil client
	if r.db == nil {
		return fmt.Errorf("InfluxDB database is nil")
	}
	if r.db.Client == nil {
		return fmt.Errorf("InfluxDB client is nil - database not initialized properly")
	}

	if len(samples) == 0 {
		return nil
	}

	// Convert to points
	points := make([]*influxdb3.Point, 0, len(samples))
	for _, sample := range samples {
		point := r.sampleToPoint(sample)
		if point != nil {
			points = append(points, point)
		}
	}

	if len(points) == 0 {
		return fmt.Errorf("no valid points to write")
	}

	// Write with timeout
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// DEFENSIVE: Log before write
	fmt.Printf("📝 Writing %d points to InfluxDB...\n", len(points))

	err := r.db.Client.WritePoints(ctx, points)
	if err != nil {
		return fmt.Errorf("WritePoints failed: %w (points: %d, db: %s)",
			err, len(points), r.db.Database)
	}

	fmt.Printf("✅ Successfully wrote %d points\n", len(points))
	return nil
}

// sampleToPoint converts domain model to InfluxDB point
func (r *InfluxRepo) sampleToPoint(sample domain.TelemetrySample) *influxdb3.Point {
	tags := map[string]string{
		"farm_id": strconv.FormatInt(sample.FarmID, 10),
	}

	fields := map[string]interface{}{
		"ac_power_kw":         sample.ACPowerKW,
		"dc_power_kw":         sample.DCPowerKW,
		"irradiance_wm2":      sample.IrradianceWM2,
		"ambient_temp_c":      sample.AmbientTempC,
		"module_temp_c":       sample.ModuleTempC,
		"wind_speed_ms":       sample.WindSpeedMS,
		"inverter_efficiency": sample.InverterEfficiency,
		"system_availability": sample.SystemAvailability,
	}

	return influxdb3.NewPoint(
		telemetryMeasurement,
		tags,
		fields,
		sample.Timestamp,
	)
}

// Query retrieves samples from InfluxDB
func (r *InfluxRepo) Query(ctx context.Context, filter domain.TelemetryFilter) ([]domain.TelemetrySample, error) {
	// CRITICAL: Check for nil client
	if r.db == nil || r.db.Client == nil {
		return nil, fmt.Errorf("InfluxDB client is nil - database not initialized")
	}

	query := buildTelemetryQuery(filter)

	// DEFENSIVE: Log query
	fmt.Printf("🔍 Executing query: %s\n", query)

	iterator, err := r.db.Client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w (query: %s)", err, query)
	}

	var results []domain.TelemetrySample
	for iterator.Next() {
		sample := r.pointToSample(iterator.Value())
		results = append(results, sample)
	}

	fmt.Printf("✅ Query returned %d samples\n", len(results))
	return results, nil
}

// buildTelemetryQuery assembles the SQL for a filtered window read
func buildTelemetryQuery(filter domain.TelemetryFilter) string {
	query := "SELECT * FROM " + telemetryMeasurement + " WHERE 1=1"

	if filter.FarmID != 0 {
		query += fmt.Sprintf(" AND farm_id = '%d'", filter.FarmID)
	}

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND time >= '%s'", filter.StartTime.Format(time.RFC3339))
	}

	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND time <= '%s'", filter.EndTime.Format(time.RFC3339))
	}

	if filter.Ascending {
		query += " ORDER BY time ASC"
	} else {
		query += " ORDER BY time DESC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return query
}

// pointToSample converts InfluxDB result to domain model
func (r *InfluxRepo) pointToSample(value map[string]interface{}) domain.TelemetrySample {
	sample := domain.TelemetrySample{
		ACPowerKW:          getFloatValue(value, "ac_power_kw"),
		DCPowerKW:          getFloatValue(value, "dc_power_kw"),
		IrradianceWM2:      getFloatValue(value, "irradiance_wm2"),
		AmbientTempC:       getFloatValue(value, "ambient_temp_c"),
		ModuleTempC:        getFloatValue(value, "module_temp_c"),
		WindSpeedMS:        getFloatValue(value, "wind_speed_ms"),
		InverterEfficiency: getFloatValue(value, "inverter_efficiency"),
		SystemAvailability: getFloatValue(value, "system_availability"),
	}

	if id, err := strconv.ParseInt(getStringValue(value, "farm_id"), 10, 64); err == nil {
		sample.FarmID = id
	}

	if ts, ok := value["time"].(time.Time); ok {
		sample.Timestamp = ts
	}

	return sample
}

// Count returns number of matching samples
func (r *InfluxRepo) Count(ctx context.Context, filter domain.TelemetryFilter) (int64, error) {
	// CRITICAL: Check for nil client
	if r.db == nil || r.db.Client == nil {
		return 0, fmt.Errorf("InfluxDB client is nil - database not initialized")
	}

	query := "SELECT COUNT(*) as count FROM " + telemetryMeasurement + " WHERE 1=1"

	if filter.FarmID != 0 {
		query += fmt.Sprintf(" AND farm_id = '%d'", filter.FarmID)
	}

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND time >= '%s'", filter.StartTime.Format(time.RFC3339))
	}

	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND time <= '%s'", filter.EndTime.Format(time.RFC3339))
	}

	iterator, err := r.db.Client.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}

	if iterator.Next() {
		value := iterator.Value()
		// Try multiple type assertions for count
		if count, ok := value["count"].(int64); ok {
			return count, nil
		}
		if count, ok := value["count"].(float64); ok {
			return int64(count), nil
		}
		if count, ok := value["count"].(int); ok {
			return int64(count), nil
		}
	}

	return 0, nil
}

// Type returns database type
func (r *InfluxRepo) Type() string {
	return "influx"
}

// Helper functions with better type handling
func getStringValue(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

func getFloatValue(data map[string]interface{}, key string) float64 {
	switch val := data[key].(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return 0.0
	}
}
