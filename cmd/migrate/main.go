package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"hookline/internal/platform/config"
	"hookline/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch *direction {
	case "up":
		err = migrateUp(db)
	case "down":
		err = migrateDown(db)
	default:
		log.Fatal("Invalid direction: must be 'up' or 'down'")
	}
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Migration completed successfully")
}

func migrateUp(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS webhooks (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		secret TEXT NOT NULL,
		description TEXT,
		events TEXT NOT NULL,
		verify_ssl INTEGER NOT NULL DEFAULT 1,
		active INTEGER NOT NULL DEFAULT 1,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		last_triggered_at INTEGER,
		created_by TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_webhooks_workspace ON webhooks(workspace_id);

	CREATE TABLE IF NOT EXISTS delivery_logs (
		id TEXT PRIMARY KEY,
		webhook_id TEXT NOT NULL REFERENCES webhooks(id) ON DELETE CASCADE,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status_code INTEGER,
		response_body TEXT,
		error_message TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		attempt_number INTEGER NOT NULL DEFAULT 1,
		next_retry_at INTEGER,
		success INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_delivery_logs_webhook ON delivery_logs(webhook_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_delivery_logs_due ON delivery_logs(next_retry_at) WHERE next_retry_at IS NOT NULL;
	`
	_, err := db.Exec(schema)
	return err
}

func migrateDown(db *sql.DB) error {
	_, err := db.Exec(`
		DROP TABLE IF EXISTS delivery_logs;
		DROP TABLE IF EXISTS webhooks;
	`)
	return err
}
