// Package cache implements a bounded key-value store with per-entry TTL,
// least-recently-used eviction and hit/miss accounting. It is shared by the
// quote sync loop and any read path that wants to reuse a recent fetch.
package cache

import (
	"encoding/json"
	"sync"
	"time"
)

type entry[V any] struct {
	data       V
	insertedAt time.Time
	hitCount   int64
	ttl        time.Duration
}

type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]

	maxSize    int
	defaultTTL time.Duration

	hits      int64
	misses    int64
	evictions int64

	stop     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	Size        int     `json:"size"`
	Evictions   int64   `json:"evictions"`
	MemoryBytes int64   `json:"memory_bytes"`
}

// New creates a cache bounded to maxSize entries. Entries written without an
// explicit TTL expire after defaultTTL. If sweepInterval > 0 a background
// goroutine removes expired entries on that interval, so memory stays bounded
// even when nobody re-reads the stale keys; call Stop to terminate it.
func New[V any](maxSize int, defaultTTL, sweepInterval time.Duration) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 1
	}

	c := &Cache[V]{
		entries:    make(map[string]*entry[V]),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
		now:        time.Now,
	}

	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}

	return c
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL. When the cache is at
// capacity the entry with the oldest insertedAt is evicted first.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &entry[V]{
		data:       value,
		insertedAt: c.now(),
		ttl:        ttl,
	}
}

// Get returns the fresh value for key. A hit refreshes the entry's LRU
// position and increments its hit counter. Expired entries are deleted as a
// side effect and counted as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	if c.now().Sub(e.insertedAt) > e.ttl {
		delete(c.entries, key)
		c.misses++
		return zero, false
	}

	e.insertedAt = c.now()
	e.hitCount++
	c.hits++

	return e.data, true
}

// GetOrCompute returns the cached value if fresh, otherwise invokes supplier
// and caches its result. A supplier failure propagates without caching. The
// supplier runs outside the cache lock, so concurrent callers for the same
// missing key may compute it more than once; last write wins.
func (c *Cache[V]) GetOrCompute(key string, supplier func() (V, error), ttl time.Duration) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := supplier()
	if err != nil {
		var zero V
		return zero, err
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.SetTTL(key, v, ttl)

	return v, nil
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len returns the current number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats returns counters plus an approximate memory footprint computed from
// the serialized size of keys and values.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var memory int64
	for key, e := range c.entries {
		memory += int64(len(key))
		if b, err := json.Marshal(e.data); err == nil {
			memory += int64(len(b))
		}
	}

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		HitRate:     hitRate,
		Size:        len(c.entries),
		Evictions:   c.evictions,
		MemoryBytes: memory,
	}
}

// Clear drops all entries without touching the counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry[V])
}

// Stop terminates the background sweep goroutine.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache[V]) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) > e.ttl {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}

// caller must hold c.mu
func (c *Cache[V]) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
	)

	for key, e := range c.entries {
		if oldestKey == "" || e.insertedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.insertedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}
