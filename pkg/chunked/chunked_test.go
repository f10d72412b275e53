package chunked

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/graphstore/pkg/cache"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/value"
)

func newStore() *Store {
	return New(kv.NewMemBackend(), cache.New())
}

func TestPutManyAboveBatchCapSplitsIntoChunks(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	entries := make(map[string]value.Value, kv.MaxBatchKeys*3)
	for i := 0; i < kv.MaxBatchKeys*3; i++ {
		entries[fmt.Sprintf("k%04d", i)] = value.FromNumber(float64(i))
	}

	require.NoError(t, s.PutMany(ctx, entries))

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	got, err := s.GetMany(ctx, keys, true)
	require.NoError(t, err)
	assert.Len(t, got, len(entries))
}

func TestGetManyServesFromCacheOnSecondCall(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemBackend()
	readCache := cache.New()
	s := New(backend, readCache)

	require.NoError(t, s.PutMany(ctx, map[string]value.Value{"k": value.FromString("v")}))

	_, err := s.GetMany(ctx, []string{"k"}, false)
	require.NoError(t, err)
	afterFirst := readCache.Stats()

	_, err = s.GetMany(ctx, []string{"k"}, false)
	require.NoError(t, err)
	afterSecond := readCache.Stats()

	assert.Greater(t, afterSecond.Hits, afterFirst.Hits)
}

func TestPutManyInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	require.NoError(t, s.PutMany(ctx, map[string]value.Value{"k": value.FromString("v1")}))
	_, _, err := s.Get(ctx, "k", false)
	require.NoError(t, err)

	require.NoError(t, s.PutMany(ctx, map[string]value.Value{"k": value.FromString("v2")}))

	v, ok, err := s.Get(ctx, "k", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v.String())
}

func TestEmptyBatchesAreNoOps(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	require.NoError(t, s.PutMany(ctx, map[string]value.Value{}))
	require.NoError(t, s.DeleteMany(ctx, nil))

	got, err := s.GetMany(ctx, nil, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransactInvalidatesCacheAndIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.PutMany(ctx, map[string]value.Value{"balance": value.FromNumber(1)}))
	_, _, err := s.Get(ctx, "balance", false)
	require.NoError(t, err)

	err = s.Transact(ctx, func(txn kv.Txn) error {
		return txn.Put("balance", value.FromNumber(2))
	})
	require.NoError(t, err)

	v, _, err := s.Get(ctx, "balance", false)
	require.NoError(t, err)
	f, _ := v.Float64()
	assert.Equal(t, 2.0, f)
}

func TestCacheGetSetSyntheticKey(t *testing.T) {
	s := newStore()
	_, ok := s.CacheGet("list$user--")
	assert.False(t, ok)

	s.CacheSet("list$user--", value.FromString("cached"))
	v, ok := s.CacheGet("list$user--")
	require.True(t, ok)
	assert.Equal(t, "cached", v.String())
}

func TestListPrefixDelegatesToBackend(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.PutMany(ctx, map[string]value.Value{
		"user--1": value.FromString("a"),
		"order--1": value.FromString("b"),
	}))

	entries, err := s.ListPrefix(ctx, "user--", kv.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user--1", entries[0].Key)
}
