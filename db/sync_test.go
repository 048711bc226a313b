// ABOUTME: Tests for sync_log and sync_state operations
// ABOUTME: Uses a temp-file sqlite database per test
package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestLogLookupMissing(t *testing.T) {
	syncLog := NewLog(openTestDB(t))

	_, found, err := syncLog.Lookup("apollo", "p1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLogRecordAndLookup(t *testing.T) {
	syncLog := NewLog(openTestDB(t))

	require.NoError(t, syncLog.Record("apollo", "p1", "zoho-1"))

	zohoID, found, err := syncLog.Lookup("apollo", "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "zoho-1", zohoID)

	// Different service namespace does not collide
	_, found, err = syncLog.Lookup("other", "p1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLogRecordOverwrites(t *testing.T) {
	syncLog := NewLog(openTestDB(t))

	require.NoError(t, syncLog.Record("apollo", "p1", "zoho-1"))
	require.NoError(t, syncLog.Record("apollo", "p1", "zoho-2"))

	zohoID, found, err := syncLog.Lookup("apollo", "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "zoho-2", zohoID)
}

func TestSyncStateLifecycle(t *testing.T) {
	database := openTestDB(t)

	state, err := GetSyncState(database, "apollo")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, UpdateSyncStatus(database, "apollo", models.SyncStatusSyncing, nil))

	state, err = GetSyncState(database, "apollo")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.SyncStatusSyncing, state.Status)
	assert.Empty(t, state.ErrorMessage)

	errMsg := "rate limited"
	require.NoError(t, UpdateSyncStatus(database, "apollo", models.SyncStatusError, &errMsg))

	state, err = GetSyncState(database, "apollo")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.SyncStatusError, state.Status)
	assert.Equal(t, "rate limited", state.ErrorMessage)
}
