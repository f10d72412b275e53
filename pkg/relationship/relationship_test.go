package relationship

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/graphstore/pkg/cache"
	"github.com/relaydb/graphstore/pkg/chunked"
	graphstore "github.com/relaydb/graphstore/pkg/errs"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/page"
)

func newEngine() *Engine {
	store := chunked.New(kv.NewMemBackend(), cache.New())
	return New(store)
}

func TestCreateIsBidirectional(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	require.NoError(t, e.Create(ctx, CreateRequest{
		NodeA: "alice", NodeB: "bob",
		NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy",
	}))

	has, err := e.HasRelationship(ctx, "alice", "bob", "follows")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = e.HasRelationship(ctx, "bob", "alice", "followedBy")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestHasRelationshipMissingSetIsNotFound(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	_, err := e.HasRelationship(ctx, "alice", "bob", "follows")
	require.Error(t, err)
	assert.True(t, graphstore.IsNotFound(err))
}

func TestRemoveUndoesCreate(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	req := CreateRequest{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}
	require.NoError(t, e.Create(ctx, req))

	ok := e.Remove(ctx, RemoveRequest{NodeA: "alice", NodeB: "bob", AToB: "follows", BToA: "followedBy"})
	assert.True(t, ok)

	has, err := e.HasRelationship(ctx, "alice", "bob", "follows")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBatchCreateDedupesExistingMembers(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))

	reqs := []CreateRequest{
		{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"},
		{NodeA: "alice", NodeB: "carol", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"},
	}
	require.NoError(t, e.BatchCreate(ctx, reqs))

	res, err := e.List(ctx, ListRequest{Node: "alice", Name: "follows"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, res.Items)
}

func TestBatchRemoveCollapsesPerRequest(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))

	ok := e.BatchRemove(ctx, []RemoveRequest{
		{NodeA: "alice", NodeB: "bob", AToB: "follows", BToA: "followedBy"},
	})
	assert.True(t, ok)

	has, _ := e.HasRelationship(ctx, "alice", "bob", "follows")
	assert.False(t, has)
}

func TestRemoveNodeCascadesBothDirections(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))
	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "carol", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))

	ok := e.RemoveNode(ctx, "bob")
	assert.True(t, ok)

	res, err := e.List(ctx, ListRequest{Node: "alice", Name: "follows"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	res, err = e.List(ctx, ListRequest{Node: "carol", Name: "follows"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestBatchRemoveNodeCollapsesPerNode(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))

	ok := e.BatchRemoveNode(ctx, []string{"bob"})
	assert.True(t, ok)
}

func TestPurgeRemovesAllRelationshipRows(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))

	n, err := e.Purge(ctx)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	_, err = e.HasRelationship(ctx, "alice", "bob", "follows")
	assert.Error(t, err)
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	require.NoError(t, e.BatchCreate(ctx, []CreateRequest{
		{NodeA: "alice", NodeB: "a1", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"},
		{NodeA: "alice", NodeB: "a2", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"},
		{NodeA: "alice", NodeB: "a3", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"},
	}))

	first := 2
	res, err := e.List(ctx, ListRequest{Node: "alice", Name: "follows", Request: page.Request{First: &first}})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.True(t, res.HasAfter)
}

func TestBatchListGathersKeysUpFront(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "alice", NodeB: "bob", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))
	require.NoError(t, e.Create(ctx, CreateRequest{NodeA: "carol", NodeB: "dan", NodeAToBRelationshipName: "follows", NodeBToARelationshipName: "followedBy"}))

	results, err := e.BatchList(ctx, []ListRequest{
		{Node: "alice", Name: "follows"},
		{Node: "carol", Name: "follows"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"bob"}, results[0].Items)
	assert.Equal(t, []string{"dan"}, results[1].Items)
}
