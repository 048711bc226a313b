// ABOUTME: Short-lived in-memory cache of the Zoho contact listing
// ABOUTME: TTL plus a fetch cooldown keep list calls under the API quota
package zoho

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	contactCacheTTL      = 5 * time.Minute
	contactFetchCooldown = 30 * time.Second
	listPageSize         = 200
)

// contactLister is the slice of Client the cache needs; narrowed for tests.
type contactLister interface {
	ListContacts(ctx context.Context, fromIndex, perPage int) ([]Record, bool, error)
}

// ContactCache serves the destination contact listing from memory when it
// is fresh enough, falling back to stale data rather than failing while a
// live fetch is unavailable. Its cooldown is independent of the token
// manager's refresh cooldown.
type ContactCache struct {
	mu sync.Mutex

	client   contactLister
	now      func() time.Time
	ttl      time.Duration
	cooldown time.Duration

	records      []Record
	fetchedAt    time.Time
	lastAttempt  time.Time
	haveSnapshot bool
}

// NewContactCache wraps client with a TTL'd cache.
func NewContactCache(client contactLister) *ContactCache {
	return &ContactCache{
		client:   client,
		now:      time.Now,
		ttl:      contactCacheTTL,
		cooldown: contactFetchCooldown,
	}
}

// Contacts returns the cached listing when it is younger than the TTL and
// force is false. Inside the fetch cooldown it returns whatever snapshot
// exists (possibly empty) without a network call. A failed live fetch
// falls back to the stale snapshot when one exists.
func (cc *ContactCache) Contacts(ctx context.Context, force bool) ([]Record, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	now := cc.now()

	if !force && cc.haveSnapshot && now.Sub(cc.fetchedAt) < cc.ttl {
		return cc.records, nil
	}

	if !cc.lastAttempt.IsZero() && now.Sub(cc.lastAttempt) < cc.cooldown {
		// Too soon since the last live fetch; serve what we have
		return cc.records, nil
	}

	cc.lastAttempt = now

	records, err := cc.fetchAll(ctx)
	if err != nil {
		if cc.haveSnapshot {
			log.Printf("contact list fetch failed, serving stale cache: %v", err)
			return cc.records, nil
		}
		return nil, err
	}

	cc.records = records
	cc.fetchedAt = now
	cc.haveSnapshot = true
	return cc.records, nil
}

// Invalidate drops the snapshot so the next read fetches live.
func (cc *ContactCache) Invalidate() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.records = nil
	cc.haveSnapshot = false
	cc.fetchedAt = time.Time{}
}

func (cc *ContactCache) fetchAll(ctx context.Context) ([]Record, error) {
	var all []Record
	fromIndex := 1

	for {
		page, more, err := cc.client.ListContacts(ctx, fromIndex, listPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if !more {
			return all, nil
		}
		fromIndex += listPageSize
	}
}
