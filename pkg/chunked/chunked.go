// Package chunked wraps a kv.Backend so callers can get/put/delete any
// number of keys without worrying about the backend's MaxBatchKeys cap: any
// multi-key operation over the cap is split into fixed-size chunks executed
// concurrently, with getMany results merged into one mapping. Reads consult
// the Read Cache first; writes invalidate the entire cache before touching
// the backend. Empty input is a no-op (spec.md §4.1).
//
// The concurrent chunk fan-out is expressed with golang.org/x/sync/errgroup
// — the same primitive the pack's cubefs-inodedb module reaches for
// whenever it needs bounded-fanout concurrent work over independent
// partitions — rather than hand-rolled WaitGroup/channel plumbing.
package chunked

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/relaydb/graphstore/pkg/cache"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/value"
)

// Store is the Chunked KV contract consumed by every engine above it.
type Store struct {
	backend kv.Backend
	cache   *cache.ReadCache
}

func New(backend kv.Backend, readCache *cache.ReadCache) *Store {
	return &Store{backend: backend, cache: readCache}
}

func chunk(keys []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(keys); i += size {
		end := i + size
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[i:end])
	}
	return chunks
}

// GetMany returns a mapping from each requested key to its value; a
// missing key is simply absent from the result map (the "missing key ⇒
// undefined" contract). Cache hits avoid the backend entirely; misses are
// written back to the cache once fetched.
func (s *Store) GetMany(ctx context.Context, keys []string, allowConcurrency bool) (map[string]value.Value, error) {
	if len(keys) == 0 {
		return map[string]value.Value{}, nil
	}

	out := make(map[string]value.Value, len(keys))
	var missing []string
	for _, k := range keys {
		if v, ok := s.cache.Get(k); ok {
			out[k] = v
		} else {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunk(missing, kv.MaxBatchKeys) {
		c := c
		g.Go(func() error {
			fetched, err := s.backend.GetMany(gctx, c, allowConcurrency)
			if err != nil {
				return err
			}
			mu.Lock()
			for k, v := range fetched {
				out[k] = v
				s.cache.Set(k, v)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get is a single-key convenience wrapper over GetMany.
func (s *Store) Get(ctx context.Context, key string, allowConcurrency bool) (value.Value, bool, error) {
	m, err := s.GetMany(ctx, []string{key}, allowConcurrency)
	if err != nil {
		return value.Null, false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// PutMany invalidates the cache, then writes every entry in chunks of up
// to MaxBatchKeys, run concurrently.
func (s *Store) PutMany(ctx context.Context, entries map[string]value.Value) error {
	if len(entries) == 0 {
		return nil
	}
	s.cache.InvalidateAll()

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunk(keys, kv.MaxBatchKeys) {
		c := c
		g.Go(func() error {
			sub := make(map[string]value.Value, len(c))
			for _, k := range c {
				sub[k] = entries[k]
			}
			return s.backend.PutMany(gctx, sub)
		})
	}
	return g.Wait()
}

// DeleteMany invalidates the cache, then deletes every key in chunks of
// up to MaxBatchKeys, run concurrently.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	s.cache.InvalidateAll()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range chunk(keys, kv.MaxBatchKeys) {
		c := c
		g.Go(func() error {
			return s.backend.DeleteMany(gctx, c)
		})
	}
	return g.Wait()
}

// ListPrefix delegates straight to the backend — prefix scans are a single
// ordered traversal, not a batch of independent keys, so chunking does not
// apply. Paginated/list reads pass AllowConcurrency per spec.md §5.
func (s *Store) ListPrefix(ctx context.Context, prefix string, opts kv.ListOptions) ([]kv.Entry, error) {
	return s.backend.ListPrefix(ctx, prefix, opts)
}

// Transact invalidates the cache, then runs fn as one atomic backend
// transaction. Used by single-edge and single-entity mutations that must
// be atomic across their index/relationship fan-out (spec.md §5).
func (s *Store) Transact(ctx context.Context, fn func(kv.Txn) error) error {
	s.cache.InvalidateAll()
	return s.backend.Transact(ctx, fn)
}

// InvalidateCache exposes the Cache Policy Glue rule directly for callers
// that need to invalidate without an accompanying KV call (e.g. purge).
func (s *Store) InvalidateCache() {
	s.cache.InvalidateAll()
}

// CacheGet and CacheSet expose the Read Cache directly for callers that
// cache derived values under a synthetic key rather than a backend key —
// listQuery's "only unfiltered, uncursored full lists are cached" rule
// keys a full prefix listing under a reserved "list$" + prefix entry, which
// has no backend row of its own and so cannot go through GetMany/PutMany.
func (s *Store) CacheGet(key string) (value.Value, bool) {
	return s.cache.Get(key)
}

func (s *Store) CacheSet(key string, v value.Value) {
	s.cache.Set(key, v)
}
