package service

import (
	"context"
	"time"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/metrics"
	"heliotelligence/internal/simulation"
	"heliotelligence/internal/weather"
	"heliotelligence/pkg/logger"
)

// WeatherSource yields an hourly TMY weather year for a site.
type WeatherSource interface {
	FetchTMY(ctx context.Context, latitude, longitude float64, site *time.Location) ([]domain.WeatherSample, error)
}

// PredictionService runs the batch yield pipeline: validate the plant
// configuration, fetch a TMY weather year for the site and run the physics
// simulation over it.
type PredictionService struct {
	weather WeatherSource
}

// NewPredictionService creates a prediction service over a weather source.
func NewPredictionService(source WeatherSource) *PredictionService {
	return &PredictionService{weather: source}
}

// Predict computes the annual yield estimate for one plant configuration.
func (s *PredictionService) Predict(ctx context.Context, config domain.PlantConfig) (*domain.SimulationResult, error) {
	start := time.Now()

	sim, err := simulation.New(config)
	if err != nil {
		metrics.SimulationsTotal.WithLabelValues("invalid_config").Inc()
		return nil, err
	}

	logger.Infof("Running simulation for location: %v, %v", config.Location.Latitude, config.Location.Longitude)

	rows, err := s.weather.FetchTMY(ctx, config.Location.Latitude, config.Location.Longitude, sim.Site())
	if err != nil {
		metrics.SimulationsTotal.WithLabelValues("weather_error").Inc()
		return nil, err
	}
	if err := weather.Validate(rows); err != nil {
		metrics.SimulationsTotal.WithLabelValues("weather_error").Inc()
		return nil, err
	}

	result, err := sim.Run(rows)
	if err != nil {
		metrics.SimulationsTotal.WithLabelValues("physics_error").Inc()
		return nil, err
	}

	metrics.SimulationsTotal.WithLabelValues("success").Inc()
	metrics.SimulationDuration.Observe(time.Since(start).Seconds())
	logger.Infof("Simulation completed successfully. Annual energy: %v kWh", result.AnnualEnergyKWh)
	return result, nil
}
