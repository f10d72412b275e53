// Package cache provides the Read Cache: a single in-memory mapping from
// encoded key to last-observed value, with no eviction and no TTL.
//
// Adapted down from the teacher's QueryCache (pkg/cache/query_cache.go),
// which is an LRU+TTL cache sized for parsed query plans. graphstore's
// cache is deliberately simpler: spec.md §4.2 calls for a single-level map
// whose only invalidation rule is "every mutation invalidates the entire
// cache before issuing KV writes" — there is no bounded size to enforce
// and no staleness window to expire, so the LRU list and TTL bookkeeping
// the teacher needs for query plans would be dead weight here. See
// DESIGN.md for the full rationale.
package cache

import (
	"sync"

	"github.com/relaydb/graphstore/pkg/value"
)

// ReadCache is the read-through cache shared by Chunked KV. Its scope is a
// single store partition and its lifetime matches the hosting process
// instance (spec.md §4.2).
type ReadCache struct {
	mu   sync.RWMutex
	data map[string]value.Value

	// disabled makes every Get report a miss and every Set a no-op,
	// without Chunked KV needing a second code path for the
	// cache-disabled diagnostic knob.
	disabled bool

	hits   uint64
	misses uint64
}

func New() *ReadCache {
	return &ReadCache{data: make(map[string]value.Value)}
}

// NewDisabled returns a Read Cache that never caches anything: every Get
// misses, every Set is a no-op. Used when a deployment turns caching off.
func NewDisabled() *ReadCache {
	return &ReadCache{data: make(map[string]value.Value), disabled: true}
}

// Get returns the cached value for key, if present.
func (c *ReadCache) Get(key string) (value.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.disabled {
		c.misses++
		return value.Null, false
	}
	v, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Set records the last-observed value for key.
func (c *ReadCache) Set(key string, v value.Value) {
	if c.disabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v
}

// InvalidateAll clears the entire cache. Every mutating operation calls
// this before dispatching its KV writes (the Cache Policy Glue of spec.md
// §2) so a concurrent read in the same turn can never observe
// pre-invalidation data after the write is issued.
func (c *ReadCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]value.Value)
}

// Stats reports simple hit/miss counters, useful for diagnostics.
type Stats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

func (c *ReadCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Size: len(c.data), Hits: c.hits, Misses: c.misses}
}
