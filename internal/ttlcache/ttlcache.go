// Package ttlcache implements the TTL + LRU cache component (spec
// component #1, "leaves first"): a monotonic-clock-driven key→value
// store with per-entry expiry and bounded size. It is the foundation
// the idempotency store and the backend schema cache are built on.
//
// Generalized from internal/cache's DedupeCache, which tracks
// timestamp-only "seen key" entries with the same touch/prune/LRU
// shape; this version stores an arbitrary value alongside the
// timestamp and exposes an explicit Sweep instead of pruning only on
// Set.
package ttlcache

import (
	"container/list"
	"sync"
	"time"
)

// Clock abstracts time.Now so tests can drive expiry deterministically
// without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type entry struct {
	key       string
	value     any
	expiresAt time.Time // zero means no expiry
	elem      *list.Element
}

// Cache is a key→value store with per-entry TTL and LRU eviction once
// MaxSize is exceeded. All operations are O(1) amortized: the map
// gives O(1) lookup and the intrusive list gives O(1) LRU bookkeeping.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*entry
	order   *list.List // front = most recently used
	maxSize int
	clock   Clock
}

// Options configures a Cache.
type Options struct {
	// MaxSize bounds the number of entries; 0 means unbounded.
	MaxSize int

	// Clock defaults to SystemClock when nil.
	Clock Clock
}

// New creates a Cache with the given options.
func New(opts Options) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{
		items:   make(map[string]*entry),
		order:   list.New(),
		maxSize: opts.MaxSize,
		clock:   clock,
	}
}

// Get returns the value for k and true, unless it is absent or
// expired. A hit moves the entry to the front of the LRU order.
func (c *Cache) Get(k string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[k]
	if !ok {
		return nil, false
	}
	if c.expired(e, c.clock.Now()) {
		c.removeLocked(e)
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Contains reports whether k is present and unexpired, without
// affecting LRU order. Used by idempotency-style callers that want to
// check without refreshing recency.
func (c *Cache) Contains(k string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[k]
	if !ok {
		return false
	}
	if c.expired(e, c.clock.Now()) {
		c.removeLocked(e)
		return false
	}
	return true
}

// Set inserts or replaces k's value. ttl of zero means no expiry. If
// inserting would exceed MaxSize, the least-recently-used entry is
// evicted first.
func (c *Cache) Set(k string, v any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	if e, ok := c.items[k]; ok {
		e.value = v
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.elem)
		return
	}

	e := &entry{key: k, value: v, expiresAt: expiresAt}
	e.elem = c.order.PushFront(e)
	c.items[k] = e

	if c.maxSize > 0 {
		for len(c.items) > c.maxSize {
			oldest := c.order.Back()
			if oldest == nil {
				break
			}
			c.removeLocked(oldest.Value.(*entry))
		}
	}
}

// Delete removes k unconditionally.
func (c *Cache) Delete(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[k]; ok {
		c.removeLocked(e)
	}
}

// Sweep evicts every entry whose expiry is at or before now, returning
// the number of entries removed. Intended to be called periodically by
// internal/scheduler rather than relying solely on lazy expiry at Get
// time.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, e := range c.items {
		if c.expired(e, now) {
			c.removeLocked(e)
			removed++
		}
	}
	return removed
}

// Len returns the current number of live entries, including ones that
// have expired but not yet been swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// removeLocked must be called with c.mu held.
func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.items, e.key)
}
