// Package cache holds the single-slot leaderboard cache.
package cache

import (
	"sync"
	"time"

	"github.com/okian/reputation/internal/domain/model"
)

// DefaultTTL is the freshness window of the cached first page.
const DefaultTTL = 5 * time.Minute

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// LeaderboardCache holds at most one leaderboard page and the time it was
// fetched. It starts empty. Concurrent writers race and the last one wins;
// the mutex only keeps each read and write whole.
type LeaderboardCache struct {
	mu        sync.RWMutex
	entry     *model.LeaderboardPage
	fetchedAt time.Time

	ttl   time.Duration
	clock Clock
}

// Option applies a configuration option to the cache.
type Option func(*LeaderboardCache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *LeaderboardCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(c *LeaderboardCache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *LeaderboardCache {
	c := &LeaderboardCache{
		ttl:   DefaultTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now exposes the cache clock so callers stamp pages consistently.
func (c *LeaderboardCache) Now() time.Time {
	return c.clock()
}

// TTL returns the freshness window.
func (c *LeaderboardCache) TTL() time.Duration {
	return c.ttl
}

// Fresh returns the cached page if one exists and is younger than the TTL.
func (c *LeaderboardCache) Fresh() (model.LeaderboardPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || c.clock().Sub(c.fetchedAt) >= c.ttl {
		return model.LeaderboardPage{}, false
	}
	return *c.entry, true
}

// Stale returns the cached page regardless of age, for degraded serving.
func (c *LeaderboardCache) Stale() (model.LeaderboardPage, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return model.LeaderboardPage{}, 0, false
	}
	return *c.entry, c.clock().Sub(c.fetchedAt), true
}

// Set overwrites the slot with page, stamped with the current clock time.
func (c *LeaderboardCache) Set(page model.LeaderboardPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &page
	c.fetchedAt = c.clock()
}

// Age reports how old the cached page is; ok is false when empty.
func (c *LeaderboardCache) Age() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return 0, false
	}
	return c.clock().Sub(c.fetchedAt), true
}

// Reset empties the slot.
func (c *LeaderboardCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
	c.fetchedAt = time.Time{}
}
