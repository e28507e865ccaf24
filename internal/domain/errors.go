package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the monitoring and persistence layers.
var (
	ErrFarmNotFound         = errors.New("solar farm not found")
	ErrAlertNotFound        = errors.New("alert not found")
	ErrAlertAlreadyResolved = errors.New("alert already resolved")
	ErrNoRecentData         = errors.New("no recent data available")
)

// ConfigurationError reports an out-of-range or missing configuration
// field. It is raised before any physics computation runs.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// NewConfigurationError builds a ConfigurationError for a single field.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// WeatherDataError reports malformed or physically implausible weather
// input, or a failure to retrieve it.
type WeatherDataError struct {
	Message string
	Err     error
}

func (e *WeatherDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("weather data error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("weather data error: %s", e.Message)
}

func (e *WeatherDataError) Unwrap() error {
	return e.Err
}

// NewWeatherDataError builds a WeatherDataError without a cause.
func NewWeatherDataError(format string, args ...interface{}) *WeatherDataError {
	return &WeatherDataError{Message: fmt.Sprintf(format, args...)}
}

// PhysicsError reports an invalid value surviving the physics pipeline, a
// defect condition that aborts the single request.
type PhysicsError struct {
	Stage   string
	Message string
}

func (e *PhysicsError) Error() string {
	return fmt.Sprintf("physics computation error in %s: %s", e.Stage, e.Message)
}

// NewPhysicsError builds a PhysicsError for a pipeline stage.
func NewPhysicsError(stage, format string, args ...interface{}) *PhysicsError {
	return &PhysicsError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}
