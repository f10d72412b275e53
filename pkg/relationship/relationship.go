// Package relationship implements bidirectional edge maintenance between
// node identifiers, with reverse-name mapping for cascade deletion
// (spec.md §4.4).
//
// Single-edge create/remove is grounded on the teacher's
// BadgerTransaction.CreateEdge/DeleteEdge (pkg/storage/badger_transaction.go):
// both directions of the edge, and their indexes, are written inside one
// KV transaction. Batch create is grounded on the same file's bulk
// label-index maintenance pattern, generalized to graphstore's "bulk-read,
// merge in memory, bulk-write" two-pass shape (spec.md §4.4).
package relationship

import (
	"context"
	"strings"

	"github.com/relaydb/graphstore/pkg/chunked"
	graphstore "github.com/relaydb/graphstore/pkg/errs"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/logging"
	"github.com/relaydb/graphstore/pkg/page"
	"github.com/relaydb/graphstore/pkg/value"
)

const (
	setPrefix     = "relationship$"
	namePrefix    = "relationship-name$"
	purgePrefix   = "relationship" // covers both setPrefix and namePrefix
)

func setKey(node, name string) string { return setPrefix + node + "$" + name }
func nameKey(name string) string      { return namePrefix + name }

// Engine maintains the relationship namespace over a Chunked KV store.
type Engine struct {
	store *chunked.Store
}

func New(store *chunked.Store) *Engine {
	return &Engine{store: store}
}

func toSet(v value.Value) []string {
	arr, ok := v.Array()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, item.String())
	}
	return out
}

func fromSet(members []string) value.Value {
	arr := make([]value.Value, len(members))
	for i, m := range members {
		arr[i] = value.FromString(m)
	}
	return value.FromArray(arr)
}

func addMember(members []string, member string) ([]string, bool) {
	for _, m := range members {
		if m == member {
			return members, false
		}
	}
	return append(members, member), true
}

func removeMember(members []string, member string) ([]string, bool) {
	for i, m := range members {
		if m == member {
			out := append(members[:i:i], members[i+1:]...)
			return out, true
		}
	}
	return members, false
}

// CreateRequest describes one edge to create: nodeA and nodeB related by
// the directional name pair (nodeAToB, nodeBToA).
type CreateRequest struct {
	NodeA                       string
	NodeB                       string
	NodeAToBRelationshipName string
	NodeBToARelationshipName string
}

// Create opens a transaction, adds nodeB to nodeA's aToB set and nodeA to
// nodeB's bToA set, and persists both name mappings — spec.md §4.4 step 1-4.
func (e *Engine) Create(ctx context.Context, req CreateRequest) error {
	keyA := setKey(req.NodeA, req.NodeAToBRelationshipName)
	keyB := setKey(req.NodeB, req.NodeBToARelationshipName)

	return e.store.Transact(ctx, func(txn kv.Txn) error {
		if err := addToSetTxn(txn, keyA, req.NodeB); err != nil {
			return err
		}
		if err := addToSetTxn(txn, keyB, req.NodeA); err != nil {
			return err
		}
		if err := txn.Put(nameKey(req.NodeAToBRelationshipName), value.FromString(req.NodeBToARelationshipName)); err != nil {
			return err
		}
		if err := txn.Put(nameKey(req.NodeBToARelationshipName), value.FromString(req.NodeAToBRelationshipName)); err != nil {
			return err
		}
		return nil
	})
}

func addToSetTxn(txn kv.Txn, key, member string) error {
	cur, _, err := txn.Get(key)
	if err != nil {
		return err
	}
	members, _ := addMember(toSet(cur), member)
	return txn.Put(key, fromSet(members))
}

// BatchCreate derives the two tuple-lists (right = aToB additions, left =
// bToA additions), bulk-reads each side's distinct set-keys, merges
// additions in memory (deduplicating existing members), and bulk-writes.
// right and left are applied sequentially to avoid key conflicts across
// the two passes (spec.md §4.4).
func (e *Engine) BatchCreate(ctx context.Context, reqs []CreateRequest) error {
	type addition struct {
		key    string
		member string
	}

	applySide := func(additions []addition) error {
		if len(additions) == 0 {
			return nil
		}
		keySet := make(map[string]struct{}, len(additions))
		for _, a := range additions {
			keySet[a.key] = struct{}{}
		}
		keys := make([]string, 0, len(keySet))
		for k := range keySet {
			keys = append(keys, k)
		}

		current, err := e.store.GetMany(ctx, keys, true)
		if err != nil {
			return graphstore.Unexpected("reading relationship sets", err)
		}

		merged := make(map[string][]string, len(keys))
		for _, k := range keys {
			merged[k] = toSet(current[k])
		}
		for _, a := range additions {
			merged[a.key], _ = addMember(merged[a.key], a.member)
		}

		entries := make(map[string]value.Value, len(merged))
		for k, members := range merged {
			entries[k] = fromSet(members)
		}
		return e.store.PutMany(ctx, entries)
	}

	var right, left []addition
	nameMappings := make(map[string]value.Value)
	for _, r := range reqs {
		right = append(right, addition{key: setKey(r.NodeA, r.NodeAToBRelationshipName), member: r.NodeB})
		left = append(left, addition{key: setKey(r.NodeB, r.NodeBToARelationshipName), member: r.NodeA})
		nameMappings[nameKey(r.NodeAToBRelationshipName)] = value.FromString(r.NodeBToARelationshipName)
		nameMappings[nameKey(r.NodeBToARelationshipName)] = value.FromString(r.NodeAToBRelationshipName)
	}

	if err := applySide(right); err != nil {
		return err
	}
	if err := applySide(left); err != nil {
		return err
	}
	if err := e.store.PutMany(ctx, nameMappings); err != nil {
		return graphstore.Unexpected("writing relationship name mappings", err)
	}
	return nil
}

// HasRelationship reports whether nodeB appears in nodeA's named set.
// Returns NotFound if no set exists for (nodeA, name) at all.
func (e *Engine) HasRelationship(ctx context.Context, nodeA, nodeB, name string) (bool, error) {
	v, found, err := e.store.Get(ctx, setKey(nodeA, name), true)
	if err != nil {
		return false, graphstore.Unexpected("reading relationship set", err)
	}
	if !found {
		return false, graphstore.NotFound("relationship set " + nodeA + "/" + name)
	}
	for _, m := range toSet(v) {
		if m == nodeB {
			return true, nil
		}
	}
	return false, nil
}

// RemoveRequest mirrors CreateRequest for single-edge removal.
type RemoveRequest struct {
	NodeA string
	NodeB string
	AToB  string
	BToA  string
}

// Remove performs the transactional dual-delete mirroring Create. Any KV
// error collapses to success=false rather than propagating, per spec.md §7.
func (e *Engine) Remove(ctx context.Context, req RemoveRequest) bool {
	err := e.store.Transact(ctx, func(txn kv.Txn) error {
		if err := removeFromSetTxn(txn, setKey(req.NodeA, req.AToB), req.NodeB); err != nil {
			return err
		}
		if err := removeFromSetTxn(txn, setKey(req.NodeB, req.BToA), req.NodeA); err != nil {
			return err
		}
		return nil
	})
	return err == nil
}

func removeFromSetTxn(txn kv.Txn, key, member string) error {
	cur, _, err := txn.Get(key)
	if err != nil {
		return err
	}
	members, _ := removeMember(toSet(cur), member)
	return txn.Put(key, fromSet(members))
}

// BatchRemove applies Remove to every request. A single request's KV
// error collapses that request to false but does not abort the batch,
// mirroring spec.md §7's collapse rule.
func (e *Engine) BatchRemove(ctx context.Context, reqs []RemoveRequest) bool {
	success := true
	for _, r := range reqs {
		if !e.Remove(ctx, r) {
			success = false
		}
	}
	return success
}

// RemoveNode cascades deletion of every edge incident to node, in both
// directions (spec.md §4.4 removeNode, steps 1-5). KV errors collapse to
// success=false.
func (e *Engine) RemoveNode(ctx context.Context, node string) bool {
	err := e.removeNode(ctx, node)
	return err == nil
}

func (e *Engine) removeNode(ctx context.Context, node string) error {
	prefix := setPrefix + node + "$"
	entries, err := e.store.ListPrefix(ctx, prefix, kv.ListOptions{AllowConcurrency: true})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	type sourceEdge struct {
		sourceKey string
		name      string
		members   []string
	}
	sources := make([]sourceEdge, 0, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimPrefix(entry.Key, prefix)
		sources = append(sources, sourceEdge{sourceKey: entry.Key, name: name, members: toSet(entry.Value)})
		names = append(names, name)
	}

	nameKeys := make([]string, len(names))
	for i, n := range names {
		nameKeys[i] = nameKey(n)
	}
	inverse, err := e.store.GetMany(ctx, nameKeys, true)
	if err != nil {
		return err
	}

	mirrorRemovals := make(map[string][]string) // mirror set key -> members to remove (just `node`)
	sourceKeys := make([]string, 0, len(sources))
	for _, s := range sources {
		sourceKeys = append(sourceKeys, s.sourceKey)
		inverseName := inverse[nameKey(s.name)].String()
		if inverseName == "" {
			continue
		}
		for _, target := range s.members {
			mirrorKey := setKey(target, inverseName)
			mirrorRemovals[mirrorKey] = append(mirrorRemovals[mirrorKey], node)
		}
	}

	deleteSources := func() error { return e.store.DeleteMany(ctx, sourceKeys) }
	deleteMirrors := func() error { return e.deleteRelationshipBatch(ctx, mirrorRemovals) }

	errCh := make(chan error, 2)
	go func() { errCh <- deleteSources() }()
	go func() { errCh <- deleteMirrors() }()
	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		logging.Warnf("relationship", "cascade delete for node %q did not complete cleanly: %v", node, firstErr)
	}
	return firstErr
}

// deleteRelationshipBatch removes the given members from each mirror set
// key, read-modify-write.
func (e *Engine) deleteRelationshipBatch(ctx context.Context, removals map[string][]string) error {
	if len(removals) == 0 {
		return nil
	}
	keys := make([]string, 0, len(removals))
	for k := range removals {
		keys = append(keys, k)
	}
	current, err := e.store.GetMany(ctx, keys, true)
	if err != nil {
		return err
	}

	entries := make(map[string]value.Value, len(keys))
	for k, toRemove := range removals {
		members := toSet(current[k])
		for _, m := range toRemove {
			members, _ = removeMember(members, m)
		}
		entries[k] = fromSet(members)
	}
	return e.store.PutMany(ctx, entries)
}

// BatchRemoveNode cascades RemoveNode over every node in nodes. A single
// node's KV error collapses to success=false for that node but does not
// abort the batch, mirroring spec.md §7's collapse rule.
func (e *Engine) BatchRemoveNode(ctx context.Context, nodes []string) bool {
	success := true
	for _, n := range nodes {
		if !e.RemoveNode(ctx, n) {
			success = false
		}
	}
	return success
}

// Purge deletes every relationship-namespace key (both the per-node sets
// and the name mappings) and returns the number of rows removed.
func (e *Engine) Purge(ctx context.Context) (int, error) {
	entries, err := e.store.ListPrefix(ctx, purgePrefix, kv.ListOptions{AllowConcurrency: true})
	if err != nil {
		return 0, graphstore.Unexpected("listing relationships for purge", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	keys := make([]string, len(entries))
	for i, e2 := range entries {
		keys[i] = e2.Key
	}
	if err := e.store.DeleteMany(ctx, keys); err != nil {
		return 0, graphstore.Unexpected("purging relationships", err)
	}
	return len(keys), nil
}

// ListRequest is one relationship-list request.
type ListRequest struct {
	Name string
	Node string
	page.Request
}

// List returns the paginated neighbor list for (node, name), in the
// set's insertion order.
func (e *Engine) List(ctx context.Context, req ListRequest) (page.Result, error) {
	v, _, err := e.store.Get(ctx, setKey(req.Node, req.Name), true)
	if err != nil {
		return page.Result{}, graphstore.Unexpected("reading relationship set", err)
	}
	return page.Paginate(toSet(v), req.Request)
}

// BatchList applies List to every request, with a single Chunked KV read
// gathering every set-key up front. An individual request's failure
// degrades to an empty page for that request, not the whole batch
// (spec.md §4.4).
func (e *Engine) BatchList(ctx context.Context, reqs []ListRequest) ([]page.Result, error) {
	keys := make([]string, len(reqs))
	for i, r := range reqs {
		keys[i] = setKey(r.Node, r.Name)
	}
	values, err := e.store.GetMany(ctx, keys, true)
	if err != nil {
		return nil, graphstore.Unexpected("reading relationship sets", err)
	}

	out := make([]page.Result, len(reqs))
	for i, r := range reqs {
		result, err := page.Paginate(toSet(values[keys[i]]), r.Request)
		if err != nil {
			out[i] = page.Result{}
			continue
		}
		out[i] = result
	}
	return out, nil
}
