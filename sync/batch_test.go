// ABOUTME: Tests for the batch coordinator
// ABOUTME: Covers grouping, inter-group delays, failure isolation, ordering, and sync-log dedupe
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadsync/models"
)

// fakeUpserter tracks concurrency and fails configured source emails.
type fakeUpserter struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	failEmails  map[string]bool
}

func (f *fakeUpserter) UpsertContact(ctx context.Context, contact models.ZohoContact) (UpsertResult, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	fail := f.failEmails[contact.Email]
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if fail {
		return UpsertResult{}, errors.New("destination rejected record")
	}
	return UpsertResult{ID: "zoho-" + contact.Email}, nil
}

type memorySyncLog struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemorySyncLog() *memorySyncLog {
	return &memorySyncLog{entries: make(map[string]string)}
}

func (m *memorySyncLog) Lookup(service, sourceID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[service+"/"+sourceID]
	return id, ok, nil
}

func (m *memorySyncLog) Record(service, sourceID, zohoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[service+"/"+sourceID] = zohoID
	return nil
}

func people(n int) []models.ApolloPerson {
	out := make([]models.ApolloPerson, n)
	for i := range out {
		out[i] = models.ApolloPerson{
			ID:       fmt.Sprintf("p%d", i),
			LastName: fmt.Sprintf("Person%d", i),
			Email:    fmt.Sprintf("p%d@x.com", i),
		}
	}
	return out
}

// newTestCoordinator swaps the sleeper for a counter.
func newTestCoordinator(engine Upserter, syncLog SyncLog) (*Coordinator, *int) {
	c := NewCoordinator(engine, fixedMapper(), syncLog)
	sleeps := 0
	c.sleep = func(ctx context.Context, d time.Duration) { sleeps++ }
	return c, &sleeps
}

func TestRunBatchGroupsAndDelays(t *testing.T) {
	engine := &fakeUpserter{}
	c, sleeps := newTestCoordinator(engine, nil)

	summary := c.RunBatch(context.Background(), people(12), BatchOptions{BatchSize: 5}, nil)

	assert.Equal(t, 12, summary.Total)
	assert.Equal(t, 12, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 12, engine.calls)

	// 12 records in groups of 5 -> 3 groups, 2 inter-group delays
	assert.Equal(t, 2, *sleeps)
	// Fan-out happened but never beyond the group size
	assert.LessOrEqual(t, engine.maxInFlight, 5)
	assert.Greater(t, engine.maxInFlight, 1)
}

func TestRunBatchNoDelayAfterLastGroup(t *testing.T) {
	engine := &fakeUpserter{}
	c, sleeps := newTestCoordinator(engine, nil)

	c.RunBatch(context.Background(), people(5), BatchOptions{BatchSize: 5}, nil)
	assert.Equal(t, 0, *sleeps)

	c.RunBatch(context.Background(), people(6), BatchOptions{BatchSize: 5}, nil)
	assert.Equal(t, 1, *sleeps)
}

func TestRunBatchFailureDoesNotAbortSiblings(t *testing.T) {
	engine := &fakeUpserter{failEmails: map[string]bool{"p3@x.com": true}}
	c, _ := newTestCoordinator(engine, nil)

	summary := c.RunBatch(context.Background(), people(12), BatchOptions{BatchSize: 5}, nil)

	assert.Equal(t, 11, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	failed := summary.Results[3]
	assert.False(t, failed.Success)
	assert.Equal(t, "p3", failed.SourceID)
	assert.Contains(t, failed.Error, "destination rejected record")
}

func TestRunBatchResultsPreserveInputOrder(t *testing.T) {
	engine := &fakeUpserter{}
	c, _ := newTestCoordinator(engine, nil)

	summary := c.RunBatch(context.Background(), people(8), BatchOptions{BatchSize: 3}, nil)

	require.Len(t, summary.Results, 8)
	for i, r := range summary.Results {
		assert.Equal(t, fmt.Sprintf("p%d", i), r.SourceID)
	}
}

func TestRunBatchProgressCallback(t *testing.T) {
	engine := &fakeUpserter{}
	c, _ := newTestCoordinator(engine, nil)

	var mu sync.Mutex
	var dones []int
	progress := func(done, total int, result models.SyncResult) {
		mu.Lock()
		defer mu.Unlock()
		dones = append(dones, done)
		assert.Equal(t, 7, total)
	}

	c.RunBatch(context.Background(), people(7), BatchOptions{BatchSize: 3}, progress)

	require.Len(t, dones, 7)
	// done is monotonically increasing under the report lock
	for i, d := range dones {
		assert.Equal(t, i+1, d)
	}
}

func TestRunBatchSyncLogSkipsImported(t *testing.T) {
	engine := &fakeUpserter{}
	syncLog := newMemorySyncLog()
	require.NoError(t, syncLog.Record(ServiceApollo, "p1", "zoho-already"))

	c, _ := newTestCoordinator(engine, syncLog)

	summary := c.RunBatch(context.Background(), people(3), BatchOptions{BatchSize: 5}, nil)

	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, engine.calls)

	skipped := summary.Results[1]
	assert.True(t, skipped.Skipped)
	assert.Equal(t, "zoho-already", skipped.ZohoID)

	// The two fresh imports were recorded for next time
	_, found, err := syncLog.Lookup(ServiceApollo, "p0")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRunBatchDefaults(t *testing.T) {
	engine := &fakeUpserter{}
	c, sleeps := newTestCoordinator(engine, nil)

	summary := c.RunBatch(context.Background(), people(6), BatchOptions{}, nil)

	assert.Equal(t, 6, summary.Total)
	assert.NotEmpty(t, summary.RunID)
	// Default batch size 5 -> two groups
	assert.Equal(t, 1, *sleeps)
}

func TestRunBatchEmptyInput(t *testing.T) {
	engine := &fakeUpserter{}
	c, sleeps := newTestCoordinator(engine, nil)

	summary := c.RunBatch(context.Background(), nil, BatchOptions{}, nil)
	assert.Equal(t, 0, summary.Total)
	assert.Empty(t, summary.Results)
	assert.Equal(t, 0, *sleeps)
}
