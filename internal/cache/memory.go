package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

type snapshot struct {
	tickets []domain.Ticket
	expiry  time.Time
}

// MemoryCache keeps a TTL-stamped snapshot of the listing. The snapshot is
// swapped atomically and never mutated in place, so readers are lock-free and
// never observe a torn value. Expiry counts from write time.
type MemoryCache struct {
	ttl time.Duration
	cur atomic.Pointer[snapshot]
	now func() time.Time
}

// NewMemoryCache builds an in-process listing cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

// Get returns the cached listing when it is still fresh.
func (c *MemoryCache) Get(_ context.Context) ([]domain.Ticket, bool) {
	snap := c.cur.Load()
	if snap == nil || c.now().After(snap.expiry) {
		return nil, false
	}
	return snap.tickets, true
}

// Set replaces the snapshot, restarting the TTL.
func (c *MemoryCache) Set(_ context.Context, tickets []domain.Ticket) {
	c.cur.Store(&snapshot{tickets: tickets, expiry: c.now().Add(c.ttl)})
}

// Invalidate drops the snapshot. The next Get is a miss.
func (c *MemoryCache) Invalidate(_ context.Context) {
	c.cur.Store(nil)
}
