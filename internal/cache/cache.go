// Package cache provides the process-local, bounded, time-expiring
// key→value store used across the engine. It is the only shared mutable
// state in the engine: single process, no cross-request invalidation
// protocol, no persistence to disk.
package cache

import (
	"container/list"
	"encoding/hex"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

const (
	// DefaultMaxEntries bounds the cache by LRU eviction.
	DefaultMaxEntries = 100
	// DefaultTTL is the per-entry expiry.
	DefaultTTL = 5 * time.Minute
)

// entry is the value stored behind each list element.
type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Cache is a bounded, TTL-expiring, LRU-evicted map safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	ll         *list.List
	items      map[string]*list.Element
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries overrides the default LRU capacity.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithTTL overrides the default per-entry expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		maxEntries: DefaultMaxEntries,
		ttl:        DefaultTTL,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Has reports whether key is present and not expired, without affecting
// its recency.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeElement(el)
		return false
	}
	return true
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return e.value, true
}

// Set stores value under key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = time.Now().Add(c.ttl)
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	})
	c.items[key] = el

	for c.ll.Len() > c.maxEntries {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

// removeElement must be called with c.mu held.
func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.items, e.key)
	c.ll.Remove(el)
}

// Stats summarizes the current cache contents, used by the `memoria cache
// stats` CLI subcommand.
type Stats struct {
	Entries   int
	OldestAge time.Duration
	NewestAge time.Duration
}

// Stats returns a point-in-time snapshot of cache occupancy. Expired
// entries are not purged by this call; it reports what's still resident.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{Entries: c.ll.Len()}
	if c.ll.Len() == 0 {
		return stats
	}

	now := time.Now()
	var oldest, newest time.Time
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		createdAt := e.expiresAt.Add(-c.ttl)
		if oldest.IsZero() || createdAt.Before(oldest) {
			oldest = createdAt
		}
		if newest.IsZero() || createdAt.After(newest) {
			newest = createdAt
		}
	}
	stats.OldestAge = now.Sub(oldest)
	stats.NewestAge = now.Sub(newest)
	return stats
}

// DigestBytes returns a short, deterministic BLAKE3 hex digest of data,
// used for cache keys derived from config fields. Never derived from a
// JSON stringification, whose key order is unspecified.
func DigestBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
