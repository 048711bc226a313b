// ABOUTME: Schema definition for the local sync database
// ABOUTME: sync_log tracks imported source ids, sync_state tracks per-service status
package db

import (
	"database/sql"
	"fmt"
)

// InitSchema creates the sync tables when they do not exist.
func InitSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sync_log (
			id TEXT PRIMARY KEY,
			source_service TEXT NOT NULL,
			source_id TEXT NOT NULL,
			zoho_id TEXT NOT NULL,
			imported_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(source_service, source_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_log_source ON sync_log(source_service, source_id)`,
		`CREATE TABLE IF NOT EXISTS sync_state (
			service TEXT PRIMARY KEY,
			last_sync_time TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'idle',
			error_message TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}
