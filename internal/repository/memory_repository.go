package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"heliotelligence/internal/domain"
)

// MemoryRepo is an in-memory implementation of every repository interface.
// It backs tests and DB_TYPE=memory development runs.
type MemoryRepo struct {
	mu sync.RWMutex

	farms      map[int64]domain.SolarFarm
	nextFarmID int64

	alerts map[string]domain.PerformanceAlert

	samples map[int64][]domain.TelemetrySample

	modules   []domain.ModuleSpec
	inverters []domain.InverterSpec
}

// NewMemoryRepo creates an empty store with the sample catalog preloaded
func NewMemoryRepo() *MemoryRepo {
	now := time.Now().UTC()

	repo := &MemoryRepo{
		farms:      make(map[int64]domain.SolarFarm),
		nextFarmID: 1,
		alerts:     make(map[string]domain.PerformanceAlert),
		samples:    make(map[int64][]domain.TelemetrySample),
	}

	for i, m := range sampleModules {
		m.ID = int64(i + 1)
		m.CreatedAt = now
		m.UpdatedAt = now
		repo.modules = append(repo.modules, m)
	}
	for i, inv := range sampleInverters {
		inv.ID = int64(i + 1)
		inv.CreatedAt = now
		inv.UpdatedAt = now
		repo.inverters = append(repo.inverters, inv)
	}

	return repo
}

// CreateFarm assigns an ID and stores the farm
func (r *MemoryRepo) CreateFarm(ctx context.Context, farm *domain.SolarFarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	farm.ID = r.nextFarmID
	r.nextFarmID++
	farm.IsActive = true
	farm.CreatedAt = now
	farm.UpdatedAt = now

	r.farms[farm.ID] = *farm
	return nil
}

// GetFarmByID retrieves a farm by its identifier
func (r *MemoryRepo) GetFarmByID(ctx context.Context, id int64) (*domain.SolarFarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	farm, ok := r.farms[id]
	if !ok {
		return nil, nil
	}

	return &farm, nil
}

// ListFarms returns all active farms ordered by ID
func (r *MemoryRepo) ListFarms(ctx context.Context) ([]domain.SolarFarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var farms []domain.SolarFarm
	for _, farm := range r.farms {
		if farm.IsActive {
			farms = append(farms, farm)
		}
	}

	sort.Slice(farms, func(i, j int) bool { return farms[i].ID < farms[j].ID })
	return farms, nil
}

// CreateAlert stores a new open alert
func (r *MemoryRepo) CreateAlert(ctx context.Context, alert *domain.PerformanceAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert.CreatedAt = time.Now().UTC()
	r.alerts[alert.ID] = *alert
	return nil
}

// GetAlertByID retrieves an alert by its identifier
func (r *MemoryRepo) GetAlertByID(ctx context.Context, id string) (*domain.PerformanceAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, nil
	}

	return &alert, nil
}

// ListAlertsByFarm returns alerts detected since the given time, newest first
func (r *MemoryRepo) ListAlertsByFarm(ctx context.Context, farmID int64, since time.Time) ([]domain.PerformanceAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var alerts []domain.PerformanceAlert
	for _, alert := range r.alerts {
		if alert.FarmID == farmID && !alert.DetectedAt.Before(since) {
			alerts = append(alerts, alert)
		}
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].DetectedAt.After(alerts[j].DetectedAt)
	})
	return alerts, nil
}

// ResolveAlert marks an open alert resolved
func (r *MemoryRepo) ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.alerts[id]
	if !ok {
		return domain.ErrAlertNotFound
	}
	if alert.IsResolved {
		return domain.ErrAlertAlreadyResolved
	}

	alert.IsResolved = true
	alert.ResolvedAt = &at
	alert.ResolvedBy = resolvedBy
	r.alerts[id] = alert
	return nil
}

// Insert stores samples keeping each farm's series sorted by time
func (r *MemoryRepo) Insert(ctx context.Context, samples []domain.TelemetrySample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	touched := make(map[int64]bool)
	for _, sample := range samples {
		r.samples[sample.FarmID] = append(r.samples[sample.FarmID], sample)
		touched[sample.FarmID] = true
	}

	for farmID := range touched {
		series := r.samples[farmID]
		sort.Slice(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
	}

	return nil
}

// Query retrieves samples based on filter
func (r *MemoryRepo) Query(ctx context.Context, filter domain.TelemetryFilter) ([]domain.TelemetrySample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.TelemetrySample
	for _, sample := range r.samples[filter.FarmID] {
		if matchesFilter(sample, filter) {
			results = append(results, sample)
		}
	}

	// Series is stored ascending
	if !filter.Ascending {
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	}

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results, nil
}

// Count returns number of samples matching filter
func (r *MemoryRepo) Count(ctx context.Context, filter domain.TelemetryFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, sample := range r.samples[filter.FarmID] {
		if matchesFilter(sample, filter) {
			count++
		}
	}

	return count, nil
}

func matchesFilter(sample domain.TelemetrySample, filter domain.TelemetryFilter) bool {
	if filter.StartTime != nil && sample.Timestamp.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && sample.Timestamp.After(*filter.EndTime) {
		return false
	}
	return true
}

// Type returns database type
func (r *MemoryRepo) Type() string {
	return "memory"
}

// Modules returns the module catalog
func (r *MemoryRepo) Modules(ctx context.Context) ([]domain.ModuleSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ModuleSpec, len(r.modules))
	copy(out, r.modules)
	return out, nil
}

// Inverters returns the inverter catalog
func (r *MemoryRepo) Inverters(ctx context.Context) ([]domain.InverterSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.InverterSpec, len(r.inverters))
	copy(out, r.inverters)
	return out, nil
}
