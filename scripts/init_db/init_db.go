package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		dbGetEnv("DB_USER", "auv_user"),
		dbGetEnv("DB_PASSWORD", "auv_password"),
		dbGetEnv("DB_HOST", "localhost"),
		dbGetEnv("DB_PORT", "5432"),
		dbGetEnv("DB_NAME", "auv_monitor"),
	)

	ctx := context.Background()

	fmt.Println("Connecting to Postgres...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Postgres is running:\n  docker-compose up -d postgres", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_telemetry_table(ctx, conn)
	step2_rules_table(ctx, conn)
	step3_alerts_table(ctx, conn)
	step4_zones_table(ctx, conn)
	step5_indexes(ctx, conn)
	step6_verify(ctx, conn)

	fmt.Println("\n✅ Database initialised successfully")
	fmt.Println("   Run next: go run ./scripts/seed")
}

func step1_telemetry_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: telemetry table ─────────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS telemetry (
			id                        UUID             PRIMARY KEY,

			-- AUV clock vs server clock: timestamp is what the vehicle
			-- reported, created_at is when the server stored it
			timestamp                 TIMESTAMPTZ      NOT NULL,
			created_at                TIMESTAMPTZ      NOT NULL DEFAULT NOW(),

			auv_id                    TEXT             NOT NULL,

			position_lat              DOUBLE PRECISION NOT NULL,
			position_lng              DOUBLE PRECISION NOT NULL,
			depth_m                   DOUBLE PRECISION NOT NULL,
			speed                     DOUBLE PRECISION NOT NULL,
			heading                   DOUBLE PRECISION NOT NULL,

			sediment_mg_l             DOUBLE PRECISION NOT NULL,
			turbidity_ntu             DOUBLE PRECISION NOT NULL,
			dissolved_oxygen_mg_l     DOUBLE PRECISION NOT NULL,
			temperature_c             DOUBLE PRECISION NOT NULL,

			plume_concentration_mg_l  DOUBLE PRECISION NOT NULL,

			battery_pct               DOUBLE PRECISION NOT NULL,
			battery_voltage           DOUBLE PRECISION NOT NULL,

			-- Original JSON payload — stored for debugging and replay
			raw                       JSONB            NOT NULL
		);
	`, "telemetry table created")
}

func step2_rules_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: alert_rules table ───────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS alert_rules (
			id          TEXT        PRIMARY KEY,
			type        TEXT        NOT NULL,
			config      JSONB       NOT NULL,
			active      BOOLEAN     NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, "alert_rules table created")
}

func step3_alerts_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: alerts table ────────────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS alerts (
			id            UUID        PRIMARY KEY,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			auv_id        TEXT        NOT NULL,
			rule_id       TEXT        NOT NULL REFERENCES alert_rules(id),
			severity      TEXT        NOT NULL,
			title         TEXT        NOT NULL,
			message       TEXT        NOT NULL,
			payload       JSONB       NOT NULL,
			telemetry_id  UUID        REFERENCES telemetry(id),

			CONSTRAINT chk_severity CHECK (
				severity IN ('low', 'medium', 'high')
			)
		);
	`, "alerts table created")
}

func step4_zones_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: zones table ─────────────────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS zones (
			id                 UUID        PRIMARY KEY,
			name               TEXT        NOT NULL,
			zone_type          TEXT        NOT NULL,

			-- GeoJSON Polygon as text; containment runs in the service
			geom               TEXT        NOT NULL,

			max_dwell_minutes  INTEGER     NOT NULL DEFAULT 0,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, "zones table created")
}

func step5_indexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 5: Indexes ─────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_telemetry_auv_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_telemetry_auv_time
				  ON telemetry (auv_id, timestamp DESC);`,
			why: "query: telemetry history / routes for one AUV",
		},
		{
			name: "idx_telemetry_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_telemetry_time
				  ON telemetry (timestamp DESC);`,
			why: "query: exports over a time window",
		},
		{
			name: "idx_alerts_dedup",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_dedup
				  ON alerts (auv_id, rule_id, created_at DESC);`,
			why: "query: deduplication window existence check",
		},
		{
			name: "idx_alerts_created_auv",
			sql: `CREATE INDEX IF NOT EXISTS idx_alerts_created_auv
				  ON alerts (created_at DESC, auv_id);`,
			why: "query: recent alerts feed",
		},
		{
			name: "idx_zones_type",
			sql: `CREATE INDEX IF NOT EXISTS idx_zones_type
				  ON zones (zone_type);`,
			why: "query: zones for one zone_dwell rule",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql,
			fmt.Sprintf("%-30s ← %s", idx.name, idx.why),
		)
	}
}

func step6_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 6: Verification ────────────────────────")

	tables := []string{"telemetry", "alert_rules", "alerts", "zones"}
	for _, table := range tables {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var indexCount int
	err := conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE tablename IN ('telemetry', 'alerts', 'zones')
		AND indexname LIKE 'idx_%'
	`).Scan(&indexCount)
	if err != nil {
		log.Fatalf("Index check failed: %v", err)
	}
	fmt.Printf("  ✓ indexes created: %d\n", indexCount)
}

// execOrFatal runs a SQL statement and prints result or exits on error
func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	_, err := conn.Exec(ctx, sql)
	if err != nil {
		log.Fatalf("FAILED — %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}

func dbGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
