// Package service orchestrates the prediction and monitoring flows on top
// of the repositories, the physics pipeline and the delivery surfaces.
package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"heliotelligence/internal/domain"
	"heliotelligence/internal/metrics"
	"heliotelligence/internal/monitoring"
	"heliotelligence/internal/queue"
	"heliotelligence/internal/repository"
	"heliotelligence/internal/simulation"
	"heliotelligence/internal/ws"
	"heliotelligence/pkg/logger"
)

const (
	// analysisWindow is how far back the analyzer looks for the latest
	// measurement.
	analysisWindow = 15 * time.Minute

	// farmCacheTTL bounds how stale a cached farm config or simulator can
	// get.
	farmCacheTTL = 5 * time.Minute
)

// MonitoringService runs the live-telemetry side of the platform: ingestion,
// performance analysis, alerting, and dashboard assembly.
type MonitoringService struct {
	farms     repository.FarmRepository
	alerts    repository.AlertRepository
	telemetry repository.TelemetryRepository
	writer    *BatchWriter
	producer  *queue.Producer
	hub       *ws.Hub
	cache     *Cache

	samplesIngested int64
	analysesRun     int64
	alertsCreated   int64
}

// NewMonitoringService wires the monitoring flow together. producer may be
// nil when alert events are disabled.
func NewMonitoringService(
	farms repository.FarmRepository,
	alerts repository.AlertRepository,
	telemetry repository.TelemetryRepository,
	writer *BatchWriter,
	producer *queue.Producer,
	hub *ws.Hub,
) *MonitoringService {
	return &MonitoringService{
		farms:     farms,
		alerts:    alerts,
		telemetry: telemetry,
		writer:    writer,
		producer:  producer,
		hub:       hub,
		cache:     NewCache(time.Minute),
	}
}

// Close releases the config cache. The batch writer is owned by the caller
// and closed separately.
func (s *MonitoringService) Close() {
	s.cache.Close()
}

// RegisterFarm validates and persists a new farm and primes the config
// cache with it.
func (s *MonitoringService) RegisterFarm(ctx context.Context, farm *domain.SolarFarm) error {
	if err := farm.Validate(); err != nil {
		return err
	}
	if err := s.farms.CreateFarm(ctx, farm); err != nil {
		return err
	}

	s.cache.Set(farmKey(farm.ID), farm, farmCacheTTL)
	metrics.ActiveFarms.Inc()
	logger.Infof("Registered solar farm: %s (ID: %d)", farm.Name, farm.ID)
	return nil
}

// ListFarms returns the list projection of all active farms.
func (s *MonitoringService) ListFarms(ctx context.Context) ([]domain.FarmSummary, error) {
	farms, err := s.farms.ListFarms(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.FarmSummary, 0, len(farms))
	for _, f := range farms {
		summaries = append(summaries, domain.FarmSummary{
			ID:         f.ID,
			Name:       f.Name,
			CapacityKW: f.CapacityKW,
			Location: domain.LocationView{
				Latitude:  f.Config.Location.Latitude,
				Longitude: f.Config.Location.Longitude,
			},
			CreatedAt: f.CreatedAt,
		})
	}
	return summaries, nil
}

// Ingest validates and persists one live sample, then analyzes it. The
// sample itself serves as the latest measurement, so analysis does not wait
// for the batch writer to flush.
func (s *MonitoringService) Ingest(ctx context.Context, farmID int64, sample domain.TelemetrySample) (*domain.AnalysisResult, error) {
	farm, err := s.farm(ctx, farmID)
	if err != nil {
		return nil, err
	}

	sample.FarmID = farmID
	if err := sample.Validate(); err != nil {
		return nil, err
	}

	s.writer.Add(sample)
	atomic.AddInt64(&s.samplesIngested, 1)
	metrics.TelemetryReceived.Inc()
	s.hub.BroadcastEnvelope(ws.TypeTelemetry, sample)
	logger.Infof("Ingested real-time data for farm %d at %s", farmID, sample.Timestamp.Format(time.RFC3339))

	return s.evaluate(ctx, farm, sample, time.Now().UTC()), nil
}

// Analyze evaluates the latest measurement inside the lookback window ending
// at analysisTime. A zero analysisTime means now.
func (s *MonitoringService) Analyze(ctx context.Context, farmID int64, analysisTime time.Time) (*domain.AnalysisResult, error) {
	if analysisTime.IsZero() {
		analysisTime = time.Now().UTC()
	}

	farm, err := s.farm(ctx, farmID)
	if err != nil {
		return nil, err
	}

	// Make buffered samples visible to the window query.
	s.writer.Flush()

	start := analysisTime.Add(-analysisWindow)
	rows, err := s.telemetry.Query(ctx, domain.TelemetryFilter{
		FarmID:    farmID,
		StartTime: &start,
		EndTime:   &analysisTime,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		logger.Warnf("No recent data found for farm %d", farmID)
		return nil, domain.ErrNoRecentData
	}

	return s.evaluate(ctx, farm, rows[0], analysisTime), nil
}

// evaluate is the shared analysis core: expected power from the physics
// model, deviation metrics, classification, alerting and fan-out.
func (s *MonitoringService) evaluate(ctx context.Context, farm *domain.SolarFarm, latest domain.TelemetrySample, analysisTime time.Time) *domain.AnalysisResult {
	start := time.Now()
	defer func() {
		metrics.AnalysisLatency.Observe(time.Since(start).Seconds())
	}()

	expected := s.expectedPower(farm, latest, analysisTime)
	actual := latest.ACPowerKW
	ratio, deviation := monitoring.Metrics(actual, expected)
	assessment := monitoring.Classify(deviation, ratio)

	if assessment.CreateAlert {
		s.createAlert(ctx, farm.ID, assessment, analysisTime, expected, actual, ratio, deviation)
	}

	atomic.AddInt64(&s.analysesRun, 1)
	metrics.CurrentDeviation.WithLabelValues(strconv.FormatInt(farm.ID, 10)).Set(deviation)

	result := &domain.AnalysisResult{
		Status:           "success",
		FarmID:           farm.ID,
		AnalysisTime:     analysisTime,
		ExpectedPowerKW:  round2(expected),
		ActualPowerKW:    round2(actual),
		PerformanceRatio: round3(ratio),
		DeviationPercent: round1(deviation),
		AlertLevel:       assessment.Severity,
		Message:          assessment.Message,
	}
	s.hub.BroadcastEnvelope(ws.TypeAnalysis, result)
	return result
}

// expectedPower runs the physics model for the farm's current conditions.
// Any failure degrades to an expectation of zero, which the classifier
// grades as critical rather than dropping the analysis.
func (s *MonitoringService) expectedPower(farm *domain.SolarFarm, latest domain.TelemetrySample, at time.Time) float64 {
	sim, err := s.simulator(farm)
	if err != nil {
		logger.Errorf("Failed to calculate expected power: %v", err)
		return 0
	}

	expected, err := monitoring.ExpectedPowerKW(sim, latest, at)
	if err != nil {
		logger.Errorf("Failed to calculate expected power: %v", err)
		return 0
	}
	return expected
}

// createAlert persists one classified deviation and fans it out. The alert
// record keeps unrounded values. Persistence failures are logged and
// swallowed so the analysis response still reaches the caller.
func (s *MonitoringService) createAlert(ctx context.Context, farmID int64, a monitoring.Assessment, detectedAt time.Time, expected, actual, ratio, deviation float64) {
	alert := &domain.PerformanceAlert{
		ID:               uuid.NewString(),
		FarmID:           farmID,
		AlertType:        a.AlertType,
		Severity:         a.Severity,
		DetectedAt:       detectedAt,
		ExpectedPowerKW:  expected,
		ActualPowerKW:    actual,
		PerformanceRatio: ratio,
		DeviationPercent: deviation,
		Message:          a.Message,
		Recommendations:  a.Recommendations,
	}

	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		logger.Errorf("Failed to create performance alert: %v", err)
		return
	}

	atomic.AddInt64(&s.alertsCreated, 1)
	metrics.AlertsCreated.WithLabelValues(a.Severity).Inc()
	logger.Infof("Created %s alert for farm %d: %s", a.Severity, farmID, a.Message)

	if err := s.producer.PublishAlertEvent(ctx, queue.EventCreated, *alert); err != nil {
		logger.Warnf("Failed to publish alert event: %v", err)
	}
	s.hub.BroadcastEnvelope(ws.TypeAlert, alert)
}

// ResolveAlert closes an open alert and fans the transition out. Unknown and
// already-resolved alerts surface as the repository sentinels.
func (s *MonitoringService) ResolveAlert(ctx context.Context, alertID, resolvedBy string) (*domain.PerformanceAlert, error) {
	if err := s.alerts.ResolveAlert(ctx, alertID, resolvedBy, time.Now().UTC()); err != nil {
		return nil, err
	}

	alert, err := s.alerts.GetAlertByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, domain.ErrAlertNotFound
	}

	logger.Infof("Alert %s resolved by %s", alertID, resolvedBy)

	if err := s.producer.PublishAlertEvent(ctx, queue.EventResolved, *alert); err != nil {
		logger.Warnf("Failed to publish alert event: %v", err)
	}
	s.hub.BroadcastEnvelope(ws.TypeAlert, alert)
	return alert, nil
}

// Dashboard assembles the monitoring view over the trailing window.
func (s *MonitoringService) Dashboard(ctx context.Context, farmID int64, hours int) (*domain.Dashboard, error) {
	if hours <= 0 {
		hours = 24
	}
	endTime := time.Now().UTC()
	startTime := endTime.Add(-time.Duration(hours) * time.Hour)

	farm, err := s.farm(ctx, farmID)
	if err != nil {
		return nil, err
	}

	// Make buffered samples visible to the window query.
	s.writer.Flush()

	rows, err := s.telemetry.Query(ctx, domain.TelemetryFilter{
		FarmID:    farmID,
		StartTime: &startTime,
		EndTime:   &endTime,
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	alerts, err := s.alerts.ListAlertsByFarm(ctx, farmID, startTime)
	if err != nil {
		return nil, err
	}

	powerData := make([]domain.PowerPoint, 0, len(rows))
	for _, r := range rows {
		powerData = append(powerData, domain.PowerPoint{
			Timestamp:     r.Timestamp,
			ACPowerKW:     r.ACPowerKW,
			DCPowerKW:     r.DCPowerKW,
			IrradianceWM2: r.IrradianceWM2,
			AmbientTempC:  r.AmbientTempC,
		})
	}

	alertViews := make([]domain.AlertView, 0, len(alerts))
	active := 0
	for _, a := range alerts {
		if !a.IsResolved {
			active++
		}
		alertViews = append(alertViews, domain.AlertView{
			ID:               a.ID,
			AlertType:        a.AlertType,
			Severity:         a.Severity,
			DetectedAt:       a.DetectedAt,
			Message:          a.Message,
			ExpectedPowerKW:  a.ExpectedPowerKW,
			ActualPowerKW:    a.ActualPowerKW,
			DeviationPercent: a.DeviationPercent,
			IsResolved:       a.IsResolved,
		})
	}

	summary := domain.DashboardSummary{
		TotalAlerts:  len(alertViews),
		ActiveAlerts: active,
	}
	if len(rows) > 0 {
		latest := rows[len(rows)-1]
		total := 0.0
		peak := 0.0
		for _, r := range rows {
			total += r.ACPowerKW
			if r.ACPowerKW > peak {
				peak = r.ACPowerKW
			}
		}
		lastUpdated := latest.Timestamp.Format(time.RFC3339)
		summary.CurrentPowerKW = latest.ACPowerKW
		summary.AvgPower24hKW = round2(total / float64(len(rows)))
		summary.PeakPower24hKW = round2(peak)
		summary.LastUpdated = &lastUpdated
	}

	return &domain.Dashboard{
		FarmInfo: domain.DashboardFarmInfo{
			ID:         farm.ID,
			Name:       farm.Name,
			CapacityKW: farm.CapacityKW,
			Location: domain.LocationView{
				Latitude:  farm.Config.Location.Latitude,
				Longitude: farm.Config.Location.Longitude,
			},
		},
		Summary:   summary,
		PowerData: powerData,
		Alerts:    alertViews,
	}, nil
}

// Stats reports service level counters.
func (s *MonitoringService) Stats() domain.Stats {
	ingested := atomic.LoadInt64(&s.samplesIngested)
	failed := int64(s.writer.WritesFailed())

	successRate := 100.0
	if ingested > 0 {
		successRate = float64(ingested-failed) / float64(ingested) * 100
	}

	return domain.Stats{
		SamplesIngested: ingested,
		AnalysesRun:     atomic.LoadInt64(&s.analysesRun),
		AlertsCreated:   atomic.LoadInt64(&s.alertsCreated),
		FailedWrites:    failed,
		BufferSize:      s.writer.Size(),
		SuccessRate:     round2(successRate),
		DatabaseType:    s.telemetry.Type(),
	}
}

// WriterStats exposes the batch writer counters for the stats endpoint.
func (s *MonitoringService) WriterStats() map[string]interface{} {
	return s.writer.Stats()
}

// CacheStats exposes the config cache counters for the stats endpoint.
func (s *MonitoringService) CacheStats() map[string]interface{} {
	return s.cache.Stats()
}

// farm returns a farm through the config cache.
func (s *MonitoringService) farm(ctx context.Context, farmID int64) (*domain.SolarFarm, error) {
	v, err := s.cache.GetOrSet(farmKey(farmID), farmCacheTTL, func() (interface{}, error) {
		farm, err := s.farms.GetFarmByID(ctx, farmID)
		if err != nil {
			return nil, err
		}
		if farm == nil {
			return nil, domain.ErrFarmNotFound
		}
		return farm, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.SolarFarm), nil
}

// simulator returns the cached physics pipeline for a farm. Simulators are
// stateless, so one instance per farm serves concurrent evaluations.
func (s *MonitoringService) simulator(farm *domain.SolarFarm) (*simulation.Simulator, error) {
	key := fmt.Sprintf("sim:%d", farm.ID)
	v, err := s.cache.GetOrSet(key, farmCacheTTL, func() (interface{}, error) {
		return simulation.New(farm.Config)
	})
	if err != nil {
		return nil, err
	}
	return v.(*simulation.Simulator), nil
}

func farmKey(farmID int64) string {
	return fmt.Sprintf("farm:%d", farmID)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
