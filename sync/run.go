// ABOUTME: End-to-end sync pipeline from Apollo search to Zoho upserts
// ABOUTME: Tracks per-service sync state around each run
package sync

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/leadsync/apollo"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
)

// PeopleSearcher is the Apollo client slice the runner needs.
type PeopleSearcher interface {
	SearchPeople(ctx context.Context, query apollo.SearchQuery) ([]models.ApolloPerson, error)
}

// Runner fetches one page of Apollo people and drives a batch upsert,
// recording the run in sync_state when a database is attached.
type Runner struct {
	source      PeopleSearcher
	coordinator *Coordinator
	database    *sql.DB
}

// NewRunner creates a runner. database may be nil to skip state tracking.
func NewRunner(source PeopleSearcher, coordinator *Coordinator, database *sql.DB) *Runner {
	return &Runner{source: source, coordinator: coordinator, database: database}
}

// Run executes search → map → batch upsert and returns the summary.
func (r *Runner) Run(ctx context.Context, query apollo.SearchQuery, opts BatchOptions, progress Progress) (models.BatchSummary, error) {
	r.setStatus(models.SyncStatusSyncing, nil)

	people, err := r.source.SearchPeople(ctx, query)
	if err != nil {
		msg := err.Error()
		r.setStatus(models.SyncStatusError, &msg)
		return models.BatchSummary{}, fmt.Errorf("failed to fetch people: %w", err)
	}

	summary := r.coordinator.RunBatch(ctx, people, opts, progress)

	if summary.Failed > 0 {
		msg := fmt.Sprintf("%d of %d records failed", summary.Failed, summary.Total)
		r.setStatus(models.SyncStatusError, &msg)
	} else {
		r.setStatus(models.SyncStatusIdle, nil)
	}

	return summary, nil
}

// RunPeople drives a batch over records the caller already has.
func (r *Runner) RunPeople(ctx context.Context, people []models.ApolloPerson, opts BatchOptions, progress Progress) models.BatchSummary {
	r.setStatus(models.SyncStatusSyncing, nil)
	summary := r.coordinator.RunBatch(ctx, people, opts, progress)
	if summary.Failed > 0 {
		msg := fmt.Sprintf("%d of %d records failed", summary.Failed, summary.Total)
		r.setStatus(models.SyncStatusError, &msg)
	} else {
		r.setStatus(models.SyncStatusIdle, nil)
	}
	return summary
}

func (r *Runner) setStatus(status string, errMsg *string) {
	if r.database == nil {
		return
	}
	if err := db.UpdateSyncStatus(r.database, ServiceApollo, status, errMsg); err != nil {
		// State tracking is best effort; the summary is the authority
		fmt.Printf("  ✗ Failed to update sync status: %v\n", err)
	}
}
