// ABOUTME: Database operations for sync_log and sync_state tables
// ABOUTME: Tracks imported source ids and per-service sync status
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/leadsync/models"
)

// Log adapts the sync_log table to the coordinator's dedupe contract.
type Log struct {
	db *sql.DB
}

// NewLog wraps database for sync-log access.
func NewLog(database *sql.DB) *Log {
	return &Log{db: database}
}

// Lookup returns the Zoho id recorded for a source record, if any.
func (l *Log) Lookup(service, sourceID string) (string, bool, error) {
	var zohoID string
	err := l.db.QueryRow(`
		SELECT zoho_id FROM sync_log
		WHERE source_service = ? AND source_id = ?
	`, service, sourceID).Scan(&zohoID)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up sync log: %w", err)
	}
	return zohoID, true, nil
}

// Record remembers that a source record landed in Zoho. Re-recording the
// same source id overwrites the previous row.
func (l *Log) Record(service, sourceID, zohoID string) error {
	_, err := l.db.Exec(`
		INSERT INTO sync_log (id, source_service, source_id, zoho_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_service, source_id) DO UPDATE SET zoho_id = excluded.zoho_id
	`, uuid.New().String(), service, sourceID, zohoID)
	if err != nil {
		return fmt.Errorf("failed to record sync log: %w", err)
	}
	return nil
}

// GetSyncState retrieves the sync state for a service.
func GetSyncState(db *sql.DB, service string) (*models.SyncState, error) {
	var state models.SyncState
	var lastSyncTime sql.NullTime
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT service, last_sync_time, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE service = ?
	`, service).Scan(
		&state.Service,
		&lastSyncTime,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	if errorMessage.Valid {
		state.ErrorMessage = errorMessage.String
	}

	return &state, nil
}

// UpdateSyncStatus upserts the sync state row for a service.
func UpdateSyncStatus(db *sql.DB, service, status string, errMsg *string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO sync_state (service, last_sync_time, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`, service, now, status, errMsg, now, now)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}
