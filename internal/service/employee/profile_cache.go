package employee

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
	"golang.org/x/sync/singleflight"
)

const defaultLookupTimeout = 5 * time.Second

type cachedProfile struct {
	profile   employee.Profile
	expiresAt time.Time
}

// ProfileCache is a read-through employee.ProfileRepository. Concurrent misses for the
// same employee share one upstream lookup. Not-found results are not cached.
//
// A shared lookup runs detached from any single caller's context and is bounded by the
// lookup timeout instead. Its result is cached only when no invalidation happened while
// it was in flight.
type ProfileCache struct {
	upstream      employee.ProfileRepository
	ttl           time.Duration
	lookupTimeout time.Duration
	now           func() time.Time

	mu         sync.RWMutex
	entries    map[string]cachedProfile
	generation uint64
	group      singleflight.Group
}

func NewProfileCache(upstream employee.ProfileRepository, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		upstream:      upstream,
		ttl:           ttl,
		lookupTimeout: defaultLookupTimeout,
		now:           time.Now,
		entries:       make(map[string]cachedProfile),
	}
}

// WithClock replaces the clock used for expiry.
func (c *ProfileCache) WithClock(now func() time.Time) *ProfileCache {
	c.now = now
	return c
}

// WithLookupTimeout bounds each shared upstream lookup.
func (c *ProfileCache) WithLookupTimeout(d time.Duration) *ProfileCache {
	if d > 0 {
		c.lookupTimeout = d
	}
	return c
}

func (c *ProfileCache) GetProfile(ctx context.Context, employeeID string) (employee.Profile, error) {
	if c.ttl <= 0 {
		return c.upstream.GetProfile(ctx, employeeID)
	}

	c.mu.RLock()
	entry, ok := c.entries[employeeID]
	generation := c.generation
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.profile, nil
	}

	ch := c.group.DoChan(employeeID, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		profile, err := c.upstream.GetProfile(lookupCtx, employeeID)
		if err != nil {
			return employee.Profile{}, err
		}
		c.mu.Lock()
		if c.generation == generation {
			c.entries[employeeID] = cachedProfile{profile: profile, expiresAt: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return profile, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return employee.Profile{}, res.Err
		}
		return res.Val.(employee.Profile), nil
	case <-ctx.Done():
		return employee.Profile{}, ctx.Err()
	}
}

// Invalidate drops the cached profile so the next lookup reads upstream. Lookups already
// in flight still answer their callers but do not repopulate the cache.
func (c *ProfileCache) Invalidate(employeeID string) {
	c.mu.Lock()
	delete(c.entries, employeeID)
	c.generation++
	c.mu.Unlock()
	c.group.Forget(employeeID)
}

// InvalidateAll drops every cached profile.
func (c *ProfileCache) InvalidateAll() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	clear(c.entries)
	c.generation++
	c.mu.Unlock()

	for _, id := range ids {
		c.group.Forget(id)
	}
}

// Purge removes expired entries and returns how many were dropped.
func (c *ProfileCache) Purge() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

func (c *ProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
