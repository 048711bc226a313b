// ABOUTME: Batch coordinator driving upserts in fixed-size concurrent groups
// ABOUTME: Inter-group delay throttles Zoho calls; per-record failures never abort siblings
package sync

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/leadsync/models"
)

const (
	// DefaultBatchSize keeps each concurrent burst small enough to stay
	// under Zoho's per-minute call quota.
	DefaultBatchSize = 5
	// DefaultInterBatchDelay spaces bursts apart. A deliberate throttle,
	// not an error-driven backoff.
	DefaultInterBatchDelay = 2 * time.Second

	// ServiceApollo is the sync-log service name for Apollo imports.
	ServiceApollo = "apollo"
)

// BatchOptions tunes a batch run. Zero values take the defaults.
type BatchOptions struct {
	BatchSize       int
	InterBatchDelay time.Duration
}

// Progress is invoked once per finished record, in completion order.
// done counts finished records including this one.
type Progress func(done, total int, result models.SyncResult)

// Upserter is the engine slice the coordinator drives.
type Upserter interface {
	UpsertContact(ctx context.Context, contact models.ZohoContact) (UpsertResult, error)
}

// SyncLog records which source ids already landed in Zoho so re-runs skip
// them. Optional; a nil log disables deduplication.
type SyncLog interface {
	Lookup(service, sourceID string) (zohoID string, found bool, err error)
	Record(service, sourceID, zohoID string) error
}

// Coordinator maps and upserts source records in groups.
type Coordinator struct {
	engine  Upserter
	mapper  *Mapper
	syncLog SyncLog
	sleep   func(ctx context.Context, d time.Duration)
}

// NewCoordinator creates a coordinator. syncLog may be nil.
func NewCoordinator(engine Upserter, mapper *Mapper, syncLog SyncLog) *Coordinator {
	return &Coordinator{
		engine:  engine,
		mapper:  mapper,
		syncLog: syncLog,
		sleep:   sleepContext,
	}
}

// RunBatch upserts people in fixed-size groups preserving input order in
// the results. Within a group records run concurrently; the group is
// awaited before the next starts, with the inter-batch delay between
// groups (never after the last). One record's failure is recorded in its
// result and does not disturb the rest.
func (c *Coordinator) RunBatch(ctx context.Context, people []models.ApolloPerson, opts BatchOptions, progress Progress) models.BatchSummary {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	delay := opts.InterBatchDelay
	if delay <= 0 {
		delay = DefaultInterBatchDelay
	}

	summary := models.BatchSummary{
		RunID:   newRunID(),
		Total:   len(people),
		Results: make([]models.SyncResult, len(people)),
	}

	var mu sync.Mutex
	done := 0
	report := func(idx int, result models.SyncResult) {
		mu.Lock()
		defer mu.Unlock()
		summary.Results[idx] = result
		done++
		if progress != nil {
			progress(done, summary.Total, result)
		}
	}

	for start := 0; start < len(people); start += size {
		end := start + size
		if end > len(people) {
			end = len(people)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				report(idx, c.syncOne(ctx, people[idx]))
			}(i)
		}
		wg.Wait()

		if end < len(people) {
			c.sleep(ctx, delay)
		}
	}

	for _, r := range summary.Results {
		switch {
		case r.Skipped:
			summary.Skipped++
			summary.Succeeded++
		case r.Success:
			summary.Succeeded++
		default:
			summary.Failed++
		}
	}

	return summary
}

// syncOne maps and upserts a single person, consulting the sync log first.
func (c *Coordinator) syncOne(ctx context.Context, p models.ApolloPerson) models.SyncResult {
	result := models.SyncResult{SourceID: p.ID}

	if c.syncLog != nil && p.ID != "" {
		zohoID, found, err := c.syncLog.Lookup(ServiceApollo, p.ID)
		if err != nil {
			log.Printf("sync log lookup failed for %s: %v", p.ID, err)
		} else if found {
			result.Success = true
			result.Skipped = true
			result.ZohoID = zohoID
			return result
		}
	}

	contact := c.mapper.Contact(p)
	upserted, err := c.engine.UpsertContact(ctx, contact)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.ZohoID = upserted.ID
	result.WasUpdate = upserted.WasUpdate

	if c.syncLog != nil && p.ID != "" {
		if err := c.syncLog.Record(ServiceApollo, p.ID, upserted.ID); err != nil {
			log.Printf("failed to record sync log for %s: %v", p.ID, err)
		}
	}

	return result
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func newRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
