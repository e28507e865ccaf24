package repository

import (
	"context"
	"time"

	"heliotelligence/internal/domain"
)

// TelemetryRepository defines access to the live measurement store.
type TelemetryRepository interface {
	// Insert writes multiple samples
	Insert(ctx context.Context, samples []domain.TelemetrySample) error

	// Query retrieves samples based on filter
	Query(ctx context.Context, filter domain.TelemetryFilter) ([]domain.TelemetrySample, error)

	// Count returns number of samples matching filter
	Count(ctx context.Context, filter domain.TelemetryFilter) (int64, error)

	// Type returns database type
	Type() string
}

// FarmRepository defines access to registered farm configurations.
type FarmRepository interface {
	// CreateFarm persists a farm and fills in its assigned ID and timestamps
	CreateFarm(ctx context.Context, farm *domain.SolarFarm) error

	// GetFarmByID returns a farm, or (nil, nil) when no farm has that ID
	GetFarmByID(ctx context.Context, id int64) (*domain.SolarFarm, error)

	// ListFarms returns all active farms
	ListFarms(ctx context.Context) ([]domain.SolarFarm, error)
}

// AlertRepository defines access to performance alert records.
type AlertRepository interface {
	// CreateAlert persists a new open alert
	CreateAlert(ctx context.Context, alert *domain.PerformanceAlert) error

	// GetAlertByID returns an alert, or (nil, nil) when no alert has that ID
	GetAlertByID(ctx context.Context, id string) (*domain.PerformanceAlert, error)

	// ListAlertsByFarm returns alerts detected since the given time, newest first
	ListAlertsByFarm(ctx context.Context, farmID int64, since time.Time) ([]domain.PerformanceAlert, error)

	// ResolveAlert marks an open alert resolved. Returns domain.ErrAlertNotFound
	// for unknown IDs and domain.ErrAlertAlreadyResolved for closed ones.
	ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) error
}

// CatalogRepository defines access to the equipment catalog.
type CatalogRepository interface {
	Modules(ctx context.Context) ([]domain.ModuleSpec, error)
	Inverters(ctx context.Context) ([]domain.InverterSpec, error)
}
