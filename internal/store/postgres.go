package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"auv-monitor/internal/config"
	"auv-monitor/internal/domain"
	"auv-monitor/internal/ingest"
)

// querier is the subset of pgx satisfied by both pgxpool.Pool and pgx.Tx, so
// the same query methods serve pooled and transactional calls.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists telemetry, alerts, rules, and zones.
type PostgresStore struct {
	q    querier
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBMaxConns,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &PostgresStore{q: pool, pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// RunInTx executes fn against a store view bound to one transaction. Any
// error from fn rolls the whole unit back. Calling RunInTx on a store that
// is already transactional just reuses the open transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx ingest.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertTelemetry(ctx context.Context, rec *domain.TelemetryRecord, raw []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.q.Exec(ctx, `
		INSERT INTO telemetry
			(id, timestamp, auv_id,
			 position_lat, position_lng, depth_m, speed, heading,
			 sediment_mg_l, turbidity_ntu, dissolved_oxygen_mg_l, temperature_c,
			 plume_concentration_mg_l, battery_pct, battery_voltage,
			 raw, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
	`,
		id,
		rec.Timestamp,
		rec.AUVID,
		rec.Position.Lat,
		rec.Position.Lng,
		rec.Position.DepthM,
		rec.Position.Speed,
		rec.Position.Heading,
		rec.Env.SedimentMgL,
		rec.Env.TurbidityNTU,
		rec.Env.DissolvedOxygenMgL,
		rec.Env.TemperatureC,
		rec.Plume.ConcentrationMgL,
		rec.Battery.LevelPct,
		rec.Battery.VoltageV,
		raw,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert telemetry: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertAlert(ctx context.Context, alert *domain.Alert) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO alerts
			(id, created_at, auv_id, rule_id, severity, title, message, payload, telemetry_id)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		alert.ID,
		alert.CreatedAt,
		alert.AUVID,
		alert.RuleID,
		string(alert.Severity),
		alert.Title,
		alert.Message,
		alert.Payload,
		alert.TelemetryID,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// ActiveRules returns rules with active = true in creation order. Inactive
// rules keep their alert history but never evaluate.
func (s *PostgresStore) ActiveRules(ctx context.Context) ([]domain.AlertRule, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, type, config, active, created_at, updated_at
		FROM alert_rules
		WHERE active = TRUE
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.AlertRule
	for rows.Next() {
		var r domain.AlertRule
		if err := rows.Scan(&r.ID, &r.Type, &r.Config, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *PostgresStore) ZonesByType(ctx context.Context, zoneType string) ([]domain.Zone, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, name, zone_type, geom, max_dwell_minutes, created_at, updated_at
		FROM zones
		WHERE zone_type = $1
		ORDER BY created_at ASC
	`, zoneType)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()
	return scanZones(rows)
}

func (s *PostgresStore) ListZones(ctx context.Context) ([]domain.Zone, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, name, zone_type, geom, max_dwell_minutes, created_at, updated_at
		FROM zones
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()
	return scanZones(rows)
}

func scanZones(rows pgx.Rows) ([]domain.Zone, error) {
	var zones []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.ZoneType, &z.Geom, &z.MaxDwellMinutes, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func (s *PostgresStore) AlertExistsSince(ctx context.Context, auvID, ruleID string, since time.Time) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE auv_id = $1 AND rule_id = $2 AND created_at >= $3
		)
	`, auvID, ruleID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("alert existence check: %w", err)
	}
	return exists, nil
}

// ListTelemetry returns persisted readings newest-first, optionally filtered
// by AUV id.
func (s *PostgresStore) ListTelemetry(ctx context.Context, auvID string, limit, offset int) ([]domain.StoredTelemetry, error) {
	query := `
		SELECT id, timestamp, auv_id,
		       position_lat, position_lng, depth_m, speed, heading,
		       sediment_mg_l, turbidity_ntu, dissolved_oxygen_mg_l, temperature_c,
		       plume_concentration_mg_l, battery_pct, battery_voltage, created_at
		FROM telemetry`
	args := []any{}
	if auvID != "" {
		query += ` WHERE auv_id = $1`
		args = append(args, auvID)
	}
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry: %w", err)
	}
	defer rows.Close()

	var records []domain.StoredTelemetry
	for rows.Next() {
		var t domain.StoredTelemetry
		err := rows.Scan(
			&t.ID, &t.Timestamp, &t.AUVID,
			&t.Position.Lat, &t.Position.Lng, &t.Position.DepthM, &t.Position.Speed, &t.Position.Heading,
			&t.Env.SedimentMgL, &t.Env.TurbidityNTU, &t.Env.DissolvedOxygenMgL, &t.Env.TemperatureC,
			&t.Plume.ConcentrationMgL, &t.Battery.LevelPct, &t.Battery.VoltageV, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}
		records = append(records, t)
	}
	return records, rows.Err()
}

// RoutePoint is one vertex of an AUV's travelled path.
type RoutePoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *PostgresStore) Route(ctx context.Context, auvID string, from, to time.Time) ([]RoutePoint, error) {
	rows, err := s.q.Query(ctx, `
		SELECT position_lat, position_lng, timestamp
		FROM telemetry
		WHERE auv_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC
	`, auvID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query route: %w", err)
	}
	defer rows.Close()

	var points []RoutePoint
	for rows.Next() {
		var p RoutePoint
		if err := rows.Scan(&p.Lat, &p.Lng, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan route point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// ExportRow is one line of the regulator CSV export: a reading joined with
// the number of alerts it caused.
type ExportRow struct {
	Timestamp          time.Time
	AUVID              string
	Lat                float64
	Lng                float64
	DepthM             float64
	SedimentMgL        float64
	TurbidityNTU       float64
	DissolvedOxygenMgL float64
	TemperatureC       float64
	PlumeMgL           float64
	BatteryPct         float64
	AlertsCount        int
}

func (s *PostgresStore) ExportRows(ctx context.Context, from, to time.Time, auvID string) ([]ExportRow, error) {
	query := `
		SELECT t.timestamp, t.auv_id, t.position_lat, t.position_lng, t.depth_m,
		       t.sediment_mg_l, t.turbidity_ntu, t.dissolved_oxygen_mg_l,
		       t.temperature_c, t.plume_concentration_mg_l, t.battery_pct,
		       COUNT(a.id) AS alerts_count
		FROM telemetry t
		LEFT JOIN alerts a ON a.telemetry_id = t.id
		WHERE t.timestamp >= $1 AND t.timestamp <= $2`
	args := []any{from, to}
	if auvID != "" {
		query += ` AND t.auv_id = $3`
		args = append(args, auvID)
	}
	query += `
		GROUP BY t.id
		ORDER BY t.timestamp ASC`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query export rows: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		err := rows.Scan(
			&r.Timestamp, &r.AUVID, &r.Lat, &r.Lng, &r.DepthM,
			&r.SedimentMgL, &r.TurbidityNTU, &r.DissolvedOxygenMgL,
			&r.TemperatureC, &r.PlumeMgL, &r.BatteryPct, &r.AlertsCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
