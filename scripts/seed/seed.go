package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file — using system environment variables")
	}

	ctx := context.Background()

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		seedGetEnv("DB_USER", "auv_user"),
		seedGetEnv("DB_PASSWORD", "auv_password"),
		seedGetEnv("DB_HOST", "localhost"),
		seedGetEnv("DB_PORT", "5432"),
		seedGetEnv("DB_NAME", "auv_monitor"),
	)

	fmt.Println("Connecting to Postgres...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	client := redis.NewClient(&redis.Options{
		Addr:     seedGetEnv("REDIS_ADDR", "localhost:6379"),
		Password: seedGetEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer client.Close()

	fmt.Println("Connecting to Redis...")
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	fmt.Println("✓ Connected")

	step1_rules(ctx, conn)
	step2_zones(ctx, conn)
	step3_api_keys(ctx, client)

	fmt.Println("\n✅ Seed complete")
}

func step1_rules(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: Alert rules ─────────────────────────")

	rules := []struct {
		id     string
		typ    string
		config string
	}{
		{
			id:  "sediment_high",
			typ: "threshold",
			config: `{"id":"sediment_high","type":"threshold","path":"env.sediment_mg_l",
				"operator":">","value":25.0,"severity":"high","dedupe_window_sec":300}`,
		},
		{
			id:  "battery_low",
			typ: "battery",
			config: `{"id":"battery_low","type":"battery","path":"battery.level_pct",
				"operator":"<","value":20.0,"severity":"medium","dedupe_window_sec":600}`,
		},
		{
			id:  "oxygen_low",
			typ: "dissolved_oxygen",
			config: `{"id":"oxygen_low","type":"dissolved_oxygen","path":"env.dissolved_oxygen_mg_l",
				"operator":"<","value":4.0,"severity":"high","dedupe_window_sec":300}`,
		},
		{
			id:  "species_proximity",
			typ: "proximity",
			config: `{"id":"species_proximity","type":"proximity","path":"species_detections[]",
				"operator":"<","value":150.0,"severity":"high","dedupe_window_sec":300}`,
		},
		{
			id:  "sensitive_zone_dwell",
			typ: "zone_dwell",
			config: `{"id":"sensitive_zone_dwell","type":"zone_dwell","path":"position",
				"operator":">","value":0,"severity":"medium","dedupe_window_sec":900,
				"zone_type":"sensitive","max_minutes":30}`,
		},
	}

	for _, r := range rules {
		_, err := conn.Exec(ctx, `
			INSERT INTO alert_rules (id, type, config, active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (id) DO UPDATE SET config = $3, updated_at = NOW()
		`, r.id, r.typ, r.config)
		if err != nil {
			log.Fatalf("Failed to seed rule %s: %v", r.id, err)
		}
		fmt.Printf("  ✓ rule: %s (%s)\n", r.id, r.typ)
	}
}

func step2_zones(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: Zones ───────────────────────────────")

	zones := []struct {
		name     string
		zoneType string
		geom     string
		maxDwell int
	}{
		{
			name:     "CCZ Sensitive Area A",
			zoneType: "sensitive",
			geom:     `{"type":"Polygon","coordinates":[[[-125.5,-14.7],[-125.3,-14.7],[-125.3,-14.6],[-125.5,-14.6],[-125.5,-14.7]]]}`,
			maxDwell: 30,
		},
		{
			name:     "Reference Zone North",
			zoneType: "reference",
			geom:     `{"type":"Polygon","coordinates":[[[-126.1,-13.9],[-125.9,-13.9],[-125.9,-13.8],[-126.1,-13.8],[-126.1,-13.9]]]}`,
			maxDwell: 120,
		},
	}

	for _, z := range zones {
		_, err := conn.Exec(ctx, `
			INSERT INTO zones (id, name, zone_type, geom, max_dwell_minutes)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, uuid.New(), z.name, z.zoneType, z.geom, z.maxDwell)
		if err != nil {
			log.Fatalf("Failed to seed zone %s: %v", z.name, err)
		}
		fmt.Printf("  ✓ zone: %s (%s)\n", z.name, z.zoneType)
	}
}

func step3_api_keys(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 3: API keys ────────────────────────────")

	// Key pattern: auv:auth:{api_key} → auv_id
	// This is what the authenticator looks up at Level 2
	apiKeys := map[string]string{
		"auv:auth:auv_001_key": "AUV-001",
		"auv:auth:auv_002_key": "AUV-002",
		"auv:auth:test_key":    "AUV-TEST",
	}

	for key, auvID := range apiKeys {
		if err := client.Set(ctx, key, auvID, 0).Err(); err != nil {
			log.Fatalf("Failed to set key %s: %v", key, err)
		}
		fmt.Printf("  ✓ %-25s → %s\n", key, auvID)
	}
}

func seedGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
