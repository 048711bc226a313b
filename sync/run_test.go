// ABOUTME: Tests for the sync runner pipeline
// ABOUTME: Covers search failure handling and sync_state transitions
package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/apollo"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
)

type fakeSearcher struct {
	people []models.ApolloPerson
	err    error
}

func (f *fakeSearcher) SearchPeople(ctx context.Context, query apollo.SearchQuery) ([]models.ApolloPerson, error) {
	return f.people, f.err
}

func TestRunnerHappyPath(t *testing.T) {
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	engine := &fakeUpserter{}
	coordinator, _ := newTestCoordinator(engine, nil)
	runner := NewRunner(&fakeSearcher{people: people(3)}, coordinator, database)

	summary, err := runner.Run(context.Background(), apollo.SearchQuery{}, BatchOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)

	state, err := db.GetSyncState(database, ServiceApollo)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.SyncStatusIdle, state.Status)
}

func TestRunnerSearchFailureSetsErrorState(t *testing.T) {
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	engine := &fakeUpserter{}
	coordinator, _ := newTestCoordinator(engine, nil)
	runner := NewRunner(&fakeSearcher{err: errors.New("credits exhausted")}, coordinator, database)

	_, err = runner.Run(context.Background(), apollo.SearchQuery{}, BatchOptions{}, nil)
	require.Error(t, err)

	state, err := db.GetSyncState(database, ServiceApollo)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.SyncStatusError, state.Status)
	assert.Contains(t, state.ErrorMessage, "credits exhausted")
}

func TestRunnerPartialFailureSetsErrorState(t *testing.T) {
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	engine := &fakeUpserter{failEmails: map[string]bool{"p0@x.com": true}}
	coordinator, _ := newTestCoordinator(engine, nil)
	runner := NewRunner(&fakeSearcher{people: people(2)}, coordinator, database)

	summary, err := runner.Run(context.Background(), apollo.SearchQuery{}, BatchOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	state, err := db.GetSyncState(database, ServiceApollo)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, models.SyncStatusError, state.Status)
}

func TestRunnerWithoutDatabase(t *testing.T) {
	engine := &fakeUpserter{}
	coordinator, _ := newTestCoordinator(engine, nil)
	runner := NewRunner(&fakeSearcher{people: people(1)}, coordinator, nil)

	summary, err := runner.Run(context.Background(), apollo.SearchQuery{}, BatchOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}
