package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/graphstore/pkg/value"
)

func TestMemBackendGetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend()

	_, ok, err := b.Get(ctx, "k1", false)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.PutMany(ctx, map[string]value.Value{"k1": value.FromString("v1")}))

	v, ok, err := b.Get(ctx, "k1", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v.String())
}

func TestMemBackendBatchSizeCap(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend()

	keys := make([]string, MaxBatchKeys+1)
	entries := make(map[string]value.Value, MaxBatchKeys+1)
	for i := range keys {
		keys[i] = string(rune('a' + i))
		entries[keys[i]] = value.FromNumber(float64(i))
	}

	_, err := b.GetMany(ctx, keys, false)
	assert.Error(t, err)

	err = b.PutMany(ctx, entries)
	assert.Error(t, err)

	err = b.DeleteMany(ctx, keys)
	assert.Error(t, err)
}

func TestMemBackendDeleteMany(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend()

	require.NoError(t, b.PutMany(ctx, map[string]value.Value{
		"a": value.FromString("1"),
		"b": value.FromString("2"),
	}))
	require.NoError(t, b.DeleteMany(ctx, []string{"a"}))

	_, ok, err := b.Get(ctx, "a", false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = b.Get(ctx, "b", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemBackendListPrefixOrderingAndCursor(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend()

	require.NoError(t, b.PutMany(ctx, map[string]value.Value{
		"user--1": value.FromString("a"),
		"user--2": value.FromString("b"),
		"user--3": value.FromString("c"),
		"order--1": value.FromString("z"),
	}))

	entries, err := b.ListPrefix(ctx, "user--", ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "user--1", entries[0].Key)
	assert.Equal(t, "user--3", entries[2].Key)

	entries, err = b.ListPrefix(ctx, "user--", ListOptions{StartAfter: "user--1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user--2", entries[0].Key)

	entries, err = b.ListPrefix(ctx, "user--", ListOptions{Reverse: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user--3", entries[0].Key)
}

func TestMemBackendTransactAtomicity(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend()

	require.NoError(t, b.PutMany(ctx, map[string]value.Value{"balance": value.FromNumber(10)}))

	err := b.Transact(ctx, func(txn Txn) error {
		v, _, err := txn.Get("balance")
		require.NoError(t, err)
		f, _ := v.Float64()
		return txn.Put("balance", value.FromNumber(f+5))
	})
	require.NoError(t, err)

	v, _, err := b.Get(ctx, "balance", false)
	require.NoError(t, err)
	f, _ := v.Float64()
	assert.Equal(t, 15.0, f)
}

func TestMemBackendTransactRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend()
	require.NoError(t, b.PutMany(ctx, map[string]value.Value{"k": value.FromString("orig")}))

	boom := assert.AnError
	err := b.Transact(ctx, func(txn Txn) error {
		require.NoError(t, txn.Put("k", value.FromString("changed")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, _, err := b.Get(ctx, "k", false)
	require.NoError(t, err)
	assert.Equal(t, "orig", v.String())
}

func TestMemBackendClosedRejectsOperations(t *testing.T) {
	ctx := context.Background()
	b := NewMemBackend()
	require.NoError(t, b.Close())

	_, _, err := b.Get(ctx, "k", false)
	assert.Error(t, err)
}
