package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"imgapi/internal/config"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_account",
		SQL: `CREATE TABLE IF NOT EXISTS account (
  account_id   TEXT PRIMARY KEY,
  account_hash TEXT NOT NULL
);`,
	},
	{
		Name: "create_table_variant",
		SQL: `CREATE TABLE IF NOT EXISTS variant (
  variant_id TEXT PRIMARY KEY,
  name       TEXT NOT NULL,
  account_id TEXT NOT NULL REFERENCES account (account_id)
);`,
	},
	{
		Name: "create_table_image",
		SQL: `CREATE TABLE IF NOT EXISTS image (
  image_id            TEXT        PRIMARY KEY,
  name                TEXT,
  uploaded_at         TIMESTAMPTZ NOT NULL,
  require_signed_urls BOOLEAN     NOT NULL,
  draft               BOOLEAN     NOT NULL,
  account_id          TEXT        NOT NULL REFERENCES account (account_id)
);`,
	},
	{
		Name: "create_index_image_account_draft",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_image_account_draft ON image (account_id, draft);`,
	},
	{
		Name: "create_table_video",
		SQL: `CREATE TABLE IF NOT EXISTS video (
  video_id TEXT PRIMARY KEY,
  name     TEXT
);`,
	},
}

// EnsureMigrated checks if the 'image' table exists and runs migrations if it doesn't.
// Safe to run on every startup; never touches existing data.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.image') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

// EnsureDefaultAccount seeds the well-known default account when enabled.
// Insert-if-absent, so running it on every startup is harmless.
func EnsureDefaultAccount(ctx context.Context, db *sql.DB, loc *time.Location) error {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM account WHERE account_id = $1`, config.DefaultAccountID).Scan(&one)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check default account: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO account (account_id, account_hash) VALUES ($1, $2)`,
		config.DefaultAccountID, config.DefaultAccountHash)
	if err != nil {
		return fmt.Errorf("insert default account: %w", err)
	}

	logJSON(loc, map[string]any{
		"component":    "database",
		"event":        "default_account_created",
		"status":       "success",
		"account_id":   config.DefaultAccountID,
		"account_hash": config.DefaultAccountHash,
	})
	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
