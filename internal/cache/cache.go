// Package cache holds the two process-local TTL caches that absorb repeated
// reads from the per-lead processing loop: the blacklist membership set and
// the daily sent counter. Both are advisory performance optimizations, not
// correctness mechanisms; mutators update or invalidate them directly so a
// fresh suppression or a new send is visible immediately within the process.
package cache

import (
	"sync"
	"time"
)

// Default TTLs, matching the tool's historical tuning.
const (
	DefaultBlacklistTTL  = 5 * time.Minute
	DefaultDailyCountTTL = time.Minute
)

// BlacklistCache holds the full set of suppressed, lowercased addresses.
// The set is replaced atomically on refresh; readers never observe a
// partially refreshed set.
type BlacklistCache struct {
	mu       sync.RWMutex
	emails   map[string]struct{}
	loadedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewBlacklistCache returns an empty, expired cache with the given TTL.
func NewBlacklistCache(ttl time.Duration) *BlacklistCache {
	if ttl <= 0 {
		ttl = DefaultBlacklistTTL
	}
	return &BlacklistCache{ttl: ttl, now: time.Now}
}

// Valid reports whether the cached set is within its TTL.
func (c *BlacklistCache) Valid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emails != nil && c.now().Sub(c.loadedAt) <= c.ttl
}

// Contains reports membership from the cached set. Callers must check
// Valid first and refresh via Replace when stale.
func (c *BlacklistCache) Contains(email string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.emails[email]
	return ok
}

// Replace swaps in a freshly loaded set and restarts the TTL clock.
func (c *BlacklistCache) Replace(emails map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails = emails
	c.loadedAt = c.now()
}

// Add records a single new suppression without restarting the TTL. Used by
// the insert path so a just-added address is suppressed immediately.
func (c *BlacklistCache) Add(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.emails == nil {
		return
	}
	c.emails[email] = struct{}{}
}

// Remove drops a single address, mirroring an explicit blacklist removal.
func (c *BlacklistCache) Remove(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.emails, email)
}

// Invalidate empties the cache, forcing the next read to refresh.
func (c *BlacklistCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails = nil
	c.loadedAt = time.Time{}
}

// Len returns the number of cached addresses.
func (c *BlacklistCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.emails)
}

// DailyCountCache holds today's sent-email total keyed by calendar date.
// An entry for a different date is a miss regardless of age.
type DailyCountCache struct {
	mu      sync.Mutex
	date    string
	count   int
	setAt   time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewDailyCountCache returns an empty, expired counter cache.
func NewDailyCountCache(ttl time.Duration) *DailyCountCache {
	if ttl <= 0 {
		ttl = DefaultDailyCountTTL
	}
	return &DailyCountCache{ttl: ttl, now: time.Now}
}

// DateKey formats t the way the cache keys days: process-local calendar date.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Get returns the cached count for date, or ok=false when the entry is
// stale, absent, or belongs to another day.
func (c *DailyCountCache) Get(date string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.date != date || c.setAt.IsZero() || c.now().Sub(c.setAt) > c.ttl {
		return 0, false
	}
	return c.count, true
}

// Set replaces the cached value and date atomically.
func (c *DailyCountCache) Set(date string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.date = date
	c.count = count
	c.setAt = c.now()
}

// Increment bumps the cached count after a successful send, keeping the cap
// check accurate without waiting for TTL expiry. No-op when the cached day
// does not match.
func (c *DailyCountCache) Increment(date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.date != date || c.setAt.IsZero() {
		return
	}
	c.count++
	c.setAt = c.now()
}

// Invalidate drops the cached value.
func (c *DailyCountCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.date = ""
	c.count = 0
	c.setAt = time.Time{}
}
