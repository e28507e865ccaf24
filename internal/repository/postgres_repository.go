package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"heliotelligence/internal/config"
	"heliotelligence/internal/domain"
)

// PostgresRepo implements FarmRepository, AlertRepository and
// CatalogRepository on the relational store.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a new relational repository
func NewPostgresRepo(db *config.PostgresDatabase) *PostgresRepo {
	return &PostgresRepo{db: db.DB}
}

var migrations = []struct {
	Name string
	SQL  string
}{
	{
		Name: "create_solar_farms",
		SQL: `CREATE TABLE IF NOT EXISTS solar_farms (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			capacity_kw DOUBLE PRECISION NOT NULL,
			location_lat DOUBLE PRECISION NOT NULL,
			location_lng DOUBLE PRECISION NOT NULL,
			location_alt DOUBLE PRECISION DEFAULT 0,
			timezone VARCHAR(64) NOT NULL DEFAULT 'Europe/London',
			array_tilt DOUBLE PRECISION NOT NULL,
			array_azimuth DOUBLE PRECISION NOT NULL,
			modules_per_string INTEGER NOT NULL,
			strings_per_inverter INTEGER NOT NULL,
			module_power DOUBLE PRECISION NOT NULL,
			module_temp_coeff DOUBLE PRECISION NOT NULL,
			inverter_power DOUBLE PRECISION NOT NULL,
			inverter_efficiency DOUBLE PRECISION NOT NULL,
			soiling_loss DOUBLE PRECISION DEFAULT 2.0,
			shading_loss DOUBLE PRECISION DEFAULT 1.0,
			snow_loss DOUBLE PRECISION DEFAULT 0.5,
			mismatch_loss DOUBLE PRECISION DEFAULT 2.0,
			wiring_loss DOUBLE PRECISION DEFAULT 2.0,
			connections_loss DOUBLE PRECISION DEFAULT 0.5,
			lid_loss DOUBLE PRECISION DEFAULT 1.5,
			nameplate_loss DOUBLE PRECISION DEFAULT 1.0,
			age_loss DOUBLE PRECISION DEFAULT 0.0,
			availability_loss DOUBLE PRECISION DEFAULT 3.0,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		Name: "index_solar_farms_is_active",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_solar_farms_is_active ON solar_farms(is_active)`,
	},
	{
		Name: "create_performance_alerts",
		SQL: `CREATE TABLE IF NOT EXISTS performance_alerts (
			id VARCHAR(36) PRIMARY KEY,
			farm_id BIGINT NOT NULL REFERENCES solar_farms(id),
			alert_type VARCHAR(100) NOT NULL,
			severity VARCHAR(50) NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL,
			expected_power_kw DOUBLE PRECISION NOT NULL,
			actual_power_kw DOUBLE PRECISION NOT NULL,
			performance_ratio DOUBLE PRECISION NOT NULL,
			deviation_percent DOUBLE PRECISION NOT NULL,
			message TEXT NOT NULL,
			recommendations TEXT,
			is_resolved BOOLEAN DEFAULT FALSE,
			resolved_at TIMESTAMPTZ,
			resolved_by VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		Name: "index_performance_alerts_farm_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_performance_alerts_farm_id ON performance_alerts(farm_id)`,
	},
	{
		Name: "index_performance_alerts_detected_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_performance_alerts_detected_at ON performance_alerts(detected_at)`,
	},
	{
		Name: "create_modules",
		SQL: `CREATE TABLE IF NOT EXISTS modules (
			id BIGSERIAL PRIMARY KEY,
			model_name VARCHAR(255) UNIQUE NOT NULL,
			pdc0 DOUBLE PRECISION NOT NULL,
			gamma_pdc DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		Name: "index_modules_model_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_modules_model_name ON modules(model_name)`,
	},
	{
		Name: "create_inverters",
		SQL: `CREATE TABLE IF NOT EXISTS inverters (
			id BIGSERIAL PRIMARY KEY,
			model_name VARCHAR(255) UNIQUE NOT NULL,
			pdc0 DOUBLE PRECISION NOT NULL,
			eta_inv_nom DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		Name: "index_inverters_model_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_inverters_model_name ON inverters(model_name)`,
	},
}

// RunMigrations executes all embedded DDL statements in order
func (r *PostgresRepo) RunMigrations() error {
	for _, m := range migrations {
		fmt.Printf("Running migration: %s\n", m.Name)
		if _, err := r.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.Name, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

var sampleModules = []domain.ModuleSpec{
	{ModelName: "Canadian Solar CS3W-400P", PDC0: 400, GammaPDC: -0.37},
	{ModelName: "JinkoSolar JKM400M-72H", PDC0: 400, GammaPDC: -0.35},
	{ModelName: "Trina Solar TSM-DE06M.08(II)", PDC0: 405, GammaPDC: -0.34},
	{ModelName: "LONGi Solar LR4-72HPH-450M", PDC0: 450, GammaPDC: -0.35},
	{ModelName: "Q CELLS Q.PEAK DUO BLK ML-G10+ 400", PDC0: 400, GammaPDC: -0.35},
	{ModelName: "SunPower SPR-X22-370", PDC0: 370, GammaPDC: -0.29},
	{ModelName: "Panasonic VBHN330SA17", PDC0: 330, GammaPDC: -0.26},
	{ModelName: "First Solar FS-6445A", PDC0: 445, GammaPDC: -0.28},
}

var sampleInverters = []domain.InverterSpec{
	{ModelName: "SMA Sunny Tripower 25000TL", PDC0: 25000, EtaInvNom: 98.1},
	{ModelName: "Fronius Symo 20.0-3-M", PDC0: 20000, EtaInvNom: 97.9},
	{ModelName: "ABB TRIO-27.6-TL-OUTD", PDC0: 27600, EtaInvNom: 98.0},
	{ModelName: "Huawei SUN2000-50KTL-M0", PDC0: 50000, EtaInvNom: 98.6},
	{ModelName: "SolarEdge SE27.6K-RW000BNF4", PDC0: 27600, EtaInvNom: 97.5},
	{ModelName: "Sungrow SG50CX", PDC0: 50000, EtaInvNom: 98.5},
	{ModelName: "FIMER PVS-100-TL", PDC0: 100000, EtaInvNom: 98.7},
	{ModelName: "Delta RPI M50A", PDC0: 50000, EtaInvNom: 98.2},
}

// SeedCatalog populates the equipment catalog on first run
func (r *PostgresRepo) SeedCatalog(ctx context.Context) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count modules: %w", err)
	}

	if count > 0 {
		fmt.Println("Sample data already exists, skipping population")
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range sampleModules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO modules (model_name, pdc0, gamma_pdc) VALUES ($1, $2, $3)`,
			m.ModelName, m.PDC0, m.GammaPDC,
		); err != nil {
			return fmt.Errorf("failed to seed module %s: %w", m.ModelName, err)
		}
	}

	for _, inv := range sampleInverters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inverters (model_name, pdc0, eta_inv_nom) VALUES ($1, $2, $3)`,
			inv.ModelName, inv.PDC0, inv.EtaInvNom,
		); err != nil {
			return fmt.Errorf("failed to seed inverter %s: %w", inv.ModelName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	fmt.Printf("Successfully added %d modules and %d inverters\n",
		len(sampleModules), len(sampleInverters))
	return nil
}

// CreateFarm persists a farm and fills in its assigned ID and timestamps
func (r *PostgresRepo) CreateFarm(ctx context.Context, farm *domain.SolarFarm) error {
	query := `
		INSERT INTO solar_farms (
			name, capacity_kw, location_lat, location_lng, location_alt, timezone,
			array_tilt, array_azimuth, modules_per_string, strings_per_inverter,
			module_power, module_temp_coeff, inverter_power, inverter_efficiency,
			soiling_loss, shading_loss, snow_loss, mismatch_loss, wiring_loss,
			connections_loss, lid_loss, nameplate_loss, age_loss, availability_loss
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id, is_active, created_at, updated_at
	`

	cfg := farm.Config
	return r.db.QueryRowContext(
		ctx,
		query,
		farm.Name,
		farm.CapacityKW,
		cfg.Location.Latitude,
		cfg.Location.Longitude,
		cfg.Location.Altitude,
		cfg.Location.Timezone,
		cfg.Array.Tilt,
		cfg.Array.Azimuth,
		cfg.Array.Stringing.ModulesPerString,
		cfg.Array.Stringing.StringsPerInverter,
		cfg.Module.Power,
		cfg.Module.TempCoefficient,
		cfg.Inverter.Power,
		cfg.Inverter.Efficiency,
		cfg.Losses.Soiling,
		cfg.Losses.Shading,
		cfg.Losses.Snow,
		cfg.Losses.Mismatch,
		cfg.Losses.Wiring,
		cfg.Losses.Connections,
		cfg.Losses.LID,
		cfg.Losses.Nameplate,
		cfg.Losses.Age,
		cfg.Losses.Availability,
	).Scan(&farm.ID, &farm.IsActive, &farm.CreatedAt, &farm.UpdatedAt)
}

const farmColumns = `
	id, name, capacity_kw, location_lat, location_lng, location_alt, timezone,
	array_tilt, array_azimuth, modules_per_string, strings_per_inverter,
	module_power, module_temp_coeff, inverter_power, inverter_efficiency,
	soiling_loss, shading_loss, snow_loss, mismatch_loss, wiring_loss,
	connections_loss, lid_loss, nameplate_loss, age_loss, availability_loss,
	is_active, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFarm(row rowScanner) (*domain.SolarFarm, error) {
	var farm domain.SolarFarm
	cfg := &farm.Config

	err := row.Scan(
		&farm.ID,
		&farm.Name,
		&farm.CapacityKW,
		&cfg.Location.Latitude,
		&cfg.Location.Longitude,
		&cfg.Location.Altitude,
		&cfg.Location.Timezone,
		&cfg.Array.Tilt,
		&cfg.Array.Azimuth,
		&cfg.Array.Stringing.ModulesPerString,
		&cfg.Array.Stringing.StringsPerInverter,
		&cfg.Module.Power,
		&cfg.Module.TempCoefficient,
		&cfg.Inverter.Power,
		&cfg.Inverter.Efficiency,
		&cfg.Losses.Soiling,
		&cfg.Losses.Shading,
		&cfg.Losses.Snow,
		&cfg.Losses.Mismatch,
		&cfg.Losses.Wiring,
		&cfg.Losses.Connections,
		&cfg.Losses.LID,
		&cfg.Losses.Nameplate,
		&cfg.Losses.Age,
		&cfg.Losses.Availability,
		&farm.IsActive,
		&farm.CreatedAt,
		&farm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &farm, nil
}

// GetFarmByID retrieves a farm by its identifier
func (r *PostgresRepo) GetFarmByID(ctx context.Context, id int64) (*domain.SolarFarm, error) {
	query := `SELECT ` + farmColumns + ` FROM solar_farms WHERE id = $1`

	farm, err := scanFarm(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return farm, nil
}

// ListFarms returns all active farms
func (r *PostgresRepo) ListFarms(ctx context.Context) ([]domain.SolarFarm, error) {
	query := `SELECT ` + farmColumns + ` FROM solar_farms WHERE is_active = TRUE ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var farms []domain.SolarFarm
	for rows.Next() {
		farm, err := scanFarm(rows)
		if err != nil {
			return nil, err
		}
		farms = append(farms, *farm)
	}

	return farms, rows.Err()
}

// CreateAlert persists a new open alert
func (r *PostgresRepo) CreateAlert(ctx context.Context, alert *domain.PerformanceAlert) error {
	query := `
		INSERT INTO performance_alerts (
			id, farm_id, alert_type, severity, detected_at,
			expected_power_kw, actual_power_kw, performance_ratio,
			deviation_percent, message, recommendations
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	return r.db.QueryRowContext(
		ctx,
		query,
		alert.ID,
		alert.FarmID,
		alert.AlertType,
		alert.Severity,
		alert.DetectedAt,
		alert.ExpectedPowerKW,
		alert.ActualPowerKW,
		alert.PerformanceRatio,
		alert.DeviationPercent,
		alert.Message,
		alert.Recommendations,
	).Scan(&alert.CreatedAt)
}

const alertColumns = `
	id, farm_id, alert_type, severity, detected_at,
	expected_power_kw, actual_power_kw, performance_ratio, deviation_percent,
	message, recommendations, is_resolved, resolved_at, resolved_by, created_at
`

func scanAlert(row rowScanner) (*domain.PerformanceAlert, error) {
	var alert domain.PerformanceAlert
	var recommendations sql.NullString
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullString

	err := row.Scan(
		&alert.ID,
		&alert.FarmID,
		&alert.AlertType,
		&alert.Severity,
		&alert.DetectedAt,
		&alert.ExpectedPowerKW,
		&alert.ActualPowerKW,
		&alert.PerformanceRatio,
		&alert.DeviationPercent,
		&alert.Message,
		&recommendations,
		&alert.IsResolved,
		&resolvedAt,
		&resolvedBy,
		&alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.Recommendations = recommendations.String
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	alert.ResolvedBy = resolvedBy.String

	return &alert, nil
}

// GetAlertByID retrieves an alert by its identifier
func (r *PostgresRepo) GetAlertByID(ctx context.Context, id string) (*domain.PerformanceAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM performance_alerts WHERE id = $1`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return alert, nil
}

// ListAlertsByFarm returns alerts detected since the given time, newest first
func (r *PostgresRepo) ListAlertsByFarm(ctx context.Context, farmID int64, since time.Time) ([]domain.PerformanceAlert, error) {
	query := `SELECT ` + alertColumns + `
		FROM performance_alerts
		WHERE farm_id = $1 AND detected_at >= $2
		ORDER BY detected_at DESC`

	rows, err := r.db.QueryContext(ctx, query, farmID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.PerformanceAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	return alerts, rows.Err()
}

// ResolveAlert marks an open alert resolved
func (r *PostgresRepo) ResolveAlert(ctx context.Context, id, resolvedBy string, at time.Time) error {
	var isResolved bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_resolved FROM performance_alerts WHERE id = $1`, id,
	).Scan(&isResolved)
	if err == sql.ErrNoRows {
		return domain.ErrAlertNotFound
	}
	if err != nil {
		return err
	}

	if isResolved {
		return domain.ErrAlertAlreadyResolved
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE performance_alerts SET is_resolved = TRUE, resolved_at = $1, resolved_by = $2 WHERE id = $3`,
		at, resolvedBy, id,
	)
	return err
}

// Modules returns the module catalog
func (r *PostgresRepo) Modules(ctx context.Context) ([]domain.ModuleSpec, error) {
	query := `SELECT id, model_name, pdc0, gamma_pdc, created_at, updated_at FROM modules ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []domain.ModuleSpec
	for rows.Next() {
		var m domain.ModuleSpec
		if err := rows.Scan(&m.ID, &m.ModelName, &m.PDC0, &m.GammaPDC, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		specs = append(specs, m)
	}

	return specs, rows.Err()
}

// Inverters returns the inverter catalog
func (r *PostgresRepo) Inverters(ctx context.Context) ([]domain.InverterSpec, error) {
	query := `SELECT id, model_name, pdc0, eta_inv_nom, created_at, updated_at FROM inverters ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []domain.InverterSpec
	for rows.Next() {
		var inv domain.InverterSpec
		if err := rows.Scan(&inv.ID, &inv.ModelName, &inv.PDC0, &inv.EtaInvNom, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		specs = append(specs, inv)
	}

	return specs, rows.Err()
}
