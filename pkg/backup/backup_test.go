package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/graphstore/pkg/blob"
	"github.com/relaydb/graphstore/pkg/cache"
	"github.com/relaydb/graphstore/pkg/chunked"
	graphstore "github.com/relaydb/graphstore/pkg/errs"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/value"
)

func newService(t *testing.T) (*Service, *chunked.Store) {
	store := chunked.New(kv.NewMemBackend(), cache.New())
	blobs := blob.NewFileStore(t.TempDir())
	return New(store, blobs, "partition-1"), store
}

func TestBackupWritesFlatKeyValueBlob(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	require.NoError(t, store.PutMany(ctx, map[string]value.Value{
		"a": value.FromString("1"),
		"b": value.FromString("2"),
	}))

	name, err := svc.Backup(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, name, "partition-1/graph-store-")

	names, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, name)
}

func TestBackupNameIncludesReason(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	name, err := svc.Backup(ctx, "nightly")
	require.NoError(t, err)
	assert.Contains(t, name, "-nightly.json")
}

func TestRestoreReplacesNamespaceAndTakesSafetyBackup(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	require.NoError(t, store.PutMany(ctx, map[string]value.Value{"a": value.FromString("1")}))
	name, err := svc.Backup(ctx, "")
	require.NoError(t, err)

	require.NoError(t, store.PutMany(ctx, map[string]value.Value{"b": value.FromString("2")}))
	require.NoError(t, store.DeleteMany(ctx, []string{"a"}))

	result, err := svc.Restore(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)

	v, found, err := store.Get(ctx, "a", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", v.String())

	_, found, err = store.Get(ctx, "b", false)
	require.NoError(t, err)
	assert.False(t, found)

	names, err := svc.List(ctx)
	require.NoError(t, err)
	foundSafetyBackup := false
	for _, n := range names {
		if n != name {
			foundSafetyBackup = true
		}
	}
	assert.True(t, foundSafetyBackup)
}

func TestRestoreMissingBlobIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Restore(ctx, "partition-1/does-not-exist.json")
	require.Error(t, err)
	assert.True(t, graphstore.IsNotFound(err))
}
