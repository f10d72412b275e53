// Package entity implements CRUD, batch, list, and range-query operations
// on entities, orchestrating the Index Engine on every mutation and the
// Relationship Engine on deletion (spec.md §4.5).
//
// Grounded on the teacher's BadgerEngine node CRUD
// (pkg/storage/badger.go) for the single-transaction create/update shape,
// and on constraint_validation.go's "compute what must be deleted before
// committing" pattern for dangling-index bookkeeping.
package entity

import (
	"context"

	"github.com/relaydb/graphstore/pkg/chunked"
	graphstore "github.com/relaydb/graphstore/pkg/errs"
	"github.com/relaydb/graphstore/pkg/index"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/page"
	"github.com/relaydb/graphstore/pkg/relationship"
	"github.com/relaydb/graphstore/pkg/value"
)

// KeyedObject pairs a caller-supplied storage key with an entity payload,
// used wherever the spec's wire format is a map<key, T> — Go slices
// preserve the caller's order explicitly, where a map would not.
type KeyedObject struct {
	Key   string
	Value value.Object
}

// RangePredicate is one {property, min, max} filter in a range query.
type RangePredicate struct {
	Property string  `json:"property"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// ListRequest is the full listQuery request: a key/index prefix
// resolution, an optional pagination window, and/or range predicates.
type ListRequest struct {
	Key   string
	Index string
	page.Request
	Query []RangePredicate
}

// Engine is the Entity Engine.
type Engine struct {
	store *chunked.Store
	index *index.Engine
	rel   *relationship.Engine
}

func New(store *chunked.Store, idx *index.Engine, rel *relationship.Engine) *Engine {
	return &Engine{store: store, index: idx, rel: rel}
}

// withID sets value'.id = value.id, defaulting to key, per spec.md §3.
func withID(key string, obj value.Object) value.Object {
	out := obj.Clone()
	if v, ok := out["id"]; !ok || v.IsNull() {
		out["id"] = value.FromString(key)
	}
	return out
}

// resolveKey implements the three-way storage-key resolution shared by
// readQuery/batchRead: key alone, index alone, or index+"--"+key for
// indexed reads (spec.md §4.5).
func resolveKey(key, idx string) string {
	switch {
	case key != "" && idx != "":
		return idx + "--" + key
	case key != "":
		return key
	default:
		return idx
	}
}

// resolvePrefix implements the listQuery prefix resolution: a plain key
// prefix, or "<property>--" for an index prefix, or index+"--"+key for a
// combined resolution.
func resolvePrefix(key, idx string) string {
	switch {
	case key != "" && idx != "":
		return idx + "--" + key
	case key != "":
		return key
	case idx != "":
		return idx + "--"
	default:
		return ""
	}
}

// Create computes value' = {...value, id: value.id ?? key}, expands it to
// every justified index row, and persists all entries in one transaction.
// Returns value'.
func (e *Engine) Create(ctx context.Context, key string, obj value.Object) (value.Object, error) {
	next := withID(key, obj)
	entries := e.index.ExpandWrite(key, next)

	err := e.store.Transact(ctx, func(txn kv.Txn) error {
		for k, v := range entries {
			if err := txn.Put(k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, graphstore.Unexpected("creating entity", err)
	}
	return next, nil
}

// BatchCreate expands every entry to its index rows, writes them all via
// Chunked KV, and returns only the caller-visible records (one per input
// entry, in input order) — the index rows themselves are not returned.
func (e *Engine) BatchCreate(ctx context.Context, entries []KeyedObject) ([]value.Object, error) {
	allEntries := make(map[string]value.Value)
	out := make([]value.Object, len(entries))
	for i, ko := range entries {
		next := withID(ko.Key, ko.Value)
		out[i] = next
		for k, v := range e.index.ExpandWrite(ko.Key, next) {
			allEntries[k] = v
		}
	}
	if err := e.store.PutMany(ctx, allEntries); err != nil {
		return nil, graphstore.Unexpected("batch creating entities", err)
	}
	return out, nil
}

// Read resolves the storage key and returns the entity, or NotFound.
func (e *Engine) Read(ctx context.Context, key, idx string) (value.Object, error) {
	storageKey := resolveKey(key, idx)
	v, found, err := e.store.Get(ctx, storageKey, true)
	if err != nil {
		return nil, graphstore.Unexpected("reading entity", err)
	}
	if !found {
		return nil, graphstore.NotFound("entity " + storageKey)
	}
	obj, ok := v.Object()
	if !ok {
		return nil, graphstore.Unexpected("entity at "+storageKey+" is not an object", nil)
	}
	return obj, nil
}

// BatchRead resolves each key the same way as Read, preserving input
// order and leaving a nil entry for misses instead of erroring.
func (e *Engine) BatchRead(ctx context.Context, keys []string, idx string) ([]value.Object, error) {
	storageKeys := make([]string, len(keys))
	for i, k := range keys {
		storageKeys[i] = resolveKey(k, idx)
	}
	values, err := e.store.GetMany(ctx, storageKeys, true)
	if err != nil {
		return nil, graphstore.Unexpected("batch reading entities", err)
	}

	out := make([]value.Object, len(keys))
	for i, sk := range storageKeys {
		if v, ok := values[sk]; ok {
			if obj, ok := v.Object(); ok {
				out[i] = obj
			}
		}
	}
	return out, nil
}

// Update is strict: NotFound unless the current value exists. The patch
// is merged as a shallow union (properties absent from patch survive),
// re-expanded to index rows, and any index row no longer justified by the
// merged value is deleted in the same transaction.
func (e *Engine) Update(ctx context.Context, key string, patch value.Object) (value.Object, error) {
	current, err := e.Read(ctx, key, "")
	if err != nil {
		return nil, err
	}

	merged := current.Merge(patch)
	writeEntries := e.index.ExpandWrite(key, merged)
	dangling := e.index.Dangling(current, merged)

	err = e.store.Transact(ctx, func(txn kv.Txn) error {
		for k, v := range writeEntries {
			if err := txn.Put(k, v); err != nil {
				return err
			}
		}
		for _, k := range dangling {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, graphstore.Unexpected("updating entity", err)
	}
	return merged, nil
}

// batchMerge is the shared engine behind BatchUpdate and BatchUpsert: bulk
// reads current values; if strict and any are missing, aborts NotFound.
// Dangling keys accumulate across all entries into one set so the whole
// batch needs only one write and one delete call.
func (e *Engine) batchMerge(ctx context.Context, entries []KeyedObject, strict bool) ([]value.Object, error) {
	keys := make([]string, len(entries))
	for i, ko := range entries {
		keys[i] = ko.Key
	}
	current, err := e.store.GetMany(ctx, keys, true)
	if err != nil {
		return nil, graphstore.Unexpected("bulk reading entities", err)
	}

	if strict {
		for _, k := range keys {
			if _, ok := current[k]; !ok {
				return nil, graphstore.NotFound("entity " + k)
			}
		}
	}

	out := make([]value.Object, len(entries))
	writeEntries := make(map[string]value.Value)
	danglingSet := make(map[string]struct{})

	for i, ko := range entries {
		var base value.Object
		if v, ok := current[ko.Key]; ok {
			if obj, ok := v.Object(); ok {
				base = obj
			}
		}
		if base == nil {
			base = value.Object{}
		}
		merged := base.Merge(ko.Value)
		out[i] = merged

		for k, v := range e.index.ExpandWrite(ko.Key, merged) {
			writeEntries[k] = v
		}
		for _, k := range e.index.Dangling(base, merged) {
			danglingSet[k] = struct{}{}
		}
	}

	danglingKeys := make([]string, 0, len(danglingSet))
	for k := range danglingSet {
		danglingKeys = append(danglingKeys, k)
	}

	if err := e.store.PutMany(ctx, writeEntries); err != nil {
		return nil, graphstore.Unexpected("batch writing entities", err)
	}
	if err := e.store.DeleteMany(ctx, danglingKeys); err != nil {
		return nil, graphstore.Unexpected("batch deleting dangling index rows", err)
	}
	return out, nil
}

// BatchUpdate is strict: NotFound if any entry's key is missing.
func (e *Engine) BatchUpdate(ctx context.Context, entries []KeyedObject) ([]value.Object, error) {
	return e.batchMerge(ctx, entries, true)
}

// BatchUpsert tolerates missing keys, treating the patch as the full
// initial value for any entry that does not yet exist.
func (e *Engine) BatchUpsert(ctx context.Context, entries []KeyedObject) ([]value.Object, error) {
	return e.batchMerge(ctx, entries, false)
}

// Remove deletes the entity and every index row its current properties
// actually occupy (spec.md §9's recommended fix over the legacy
// entity-key-guess asymmetry — see DESIGN.md), then cascades a Relationship
// RemoveNode. DeleteFailed if the entity did not exist.
func (e *Engine) Remove(ctx context.Context, key string) error {
	current, err := e.Read(ctx, key, "")
	if err != nil {
		if graphstore.IsNotFound(err) {
			return graphstore.DeleteFailed("entity " + key)
		}
		return err
	}

	keys := append([]string{key}, e.index.DeleteKeysFor(current)...)
	if err := e.store.DeleteMany(ctx, keys); err != nil {
		return graphstore.Unexpected("removing entity", err)
	}
	e.rel.RemoveNode(ctx, key)
	return nil
}

// BatchRemove unions every input entity's delete key-set, deletes them in
// one Chunked KV call, then cascades RemoveNode for every input key.
func (e *Engine) BatchRemove(ctx context.Context, keys []string) error {
	current, err := e.store.GetMany(ctx, keys, true)
	if err != nil {
		return graphstore.Unexpected("bulk reading entities for removal", err)
	}

	deleteSet := make(map[string]struct{})
	for _, k := range keys {
		deleteSet[k] = struct{}{}
		if v, ok := current[k]; ok {
			if obj, ok := v.Object(); ok {
				for _, ik := range e.index.DeleteKeysFor(obj) {
					deleteSet[ik] = struct{}{}
				}
			}
		}
	}
	deleteKeys := make([]string, 0, len(deleteSet))
	for k := range deleteSet {
		deleteKeys = append(deleteKeys, k)
	}

	if err := e.store.DeleteMany(ctx, deleteKeys); err != nil {
		return graphstore.Unexpected("batch removing entities", err)
	}
	e.rel.BatchRemoveNode(ctx, keys)
	return nil
}

// List dispatches to the paginated-list or range-query path, per
// spec.md §4.5, and projects results in encounter order (each carrying its
// own "id" property — the Go analogue of "an ordered mapping keyed by id").
func (e *Engine) List(ctx context.Context, req ListRequest) ([]value.Object, error) {
	prefix := resolvePrefix(req.Key, req.Index)

	if req.Request.IsPaginated() {
		return e.listPaginated(ctx, prefix, req.Request)
	}
	if len(req.Query) > 0 {
		return e.listRange(ctx, prefix, req.Query)
	}
	return e.listPlain(ctx, prefix)
}

func entriesToObjects(entries []kv.Entry) []value.Object {
	out := make([]value.Object, 0, len(entries))
	for _, e := range entries {
		if obj, ok := e.Value.Object(); ok {
			out = append(out, obj)
		}
	}
	return out
}

// listPaginated materializes the full prefix, then runs the same
// pkg/page.Paginate algorithm relationship listing uses over the ordered
// key list, mapping the returned page of keys back to their objects.
func (e *Engine) listPaginated(ctx context.Context, prefix string, req page.Request) ([]value.Object, error) {
	entries, err := e.store.ListPrefix(ctx, prefix, kv.ListOptions{AllowConcurrency: true})
	if err != nil {
		return nil, graphstore.Unexpected("listing entities", err)
	}

	keys := make([]string, len(entries))
	objByKey := make(map[string]value.Object, len(entries))
	for i, en := range entries {
		keys[i] = en.Key
		if obj, ok := en.Value.Object(); ok {
			objByKey[en.Key] = obj
		}
	}

	result, err := page.Paginate(keys, req)
	if err != nil {
		return nil, err
	}

	out := make([]value.Object, 0, len(result.Items))
	for _, k := range result.Items {
		if obj, ok := objByKey[k]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (e *Engine) listCacheKey(prefix string) string { return "list$" + prefix }

func (e *Engine) listPlain(ctx context.Context, prefix string) ([]value.Object, error) {
	if cached, ok := e.store.CacheGet(e.listCacheKey(prefix)); ok {
		if arr, ok := cached.Array(); ok {
			out := make([]value.Object, 0, len(arr))
			for _, v := range arr {
				if obj, ok := v.Object(); ok {
					out = append(out, obj)
				}
			}
			return out, nil
		}
	}

	entries, err := e.store.ListPrefix(ctx, prefix, kv.ListOptions{AllowConcurrency: true})
	if err != nil {
		return nil, graphstore.Unexpected("listing entities", err)
	}
	out := entriesToObjects(entries)

	arr := make([]value.Value, len(out))
	for i, obj := range out {
		arr[i] = value.FromObject(obj)
	}
	e.store.CacheSet(e.listCacheKey(prefix), value.FromArray(arr))
	return out, nil
}

func (e *Engine) listRange(ctx context.Context, prefix string, predicates []RangePredicate) ([]value.Object, error) {
	full, err := e.listPlain(ctx, prefix)
	if err != nil {
		return nil, err
	}

	out := make([]value.Object, 0, len(full))
	for _, obj := range full {
		if matchesAll(obj, predicates) {
			out = append(out, obj)
		}
	}
	return out, nil
}

func matchesAll(obj value.Object, predicates []RangePredicate) bool {
	for _, p := range predicates {
		v, ok := obj[p.Property]
		if !ok {
			return false
		}
		f, ok := v.Float64()
		if !ok {
			return false
		}
		if f < p.Min || f > p.Max {
			return false
		}
	}
	return true
}

// PurgeAll deletes the entire KV namespace. Does not touch backups.
func (e *Engine) PurgeAll(ctx context.Context) error {
	entries, err := e.store.ListPrefix(ctx, "", kv.ListOptions{AllowConcurrency: true})
	if err != nil {
		return graphstore.Unexpected("listing namespace for purge", err)
	}
	keys := make([]string, len(entries))
	for i, en := range entries {
		keys[i] = en.Key
	}
	if err := e.store.DeleteMany(ctx, keys); err != nil {
		return graphstore.Unexpected("purging namespace", err)
	}
	return nil
}

// idOf is a small helper for callers that want to project results keyed
// by id, matching spec.md's "ordered mapping keyed by id" framing while
// keeping the Go-idiomatic ordered-slice representation as the primary API.
func idOf(obj value.Object) string {
	if v, ok := obj["id"]; ok {
		return v.String()
	}
	return ""
}

// ByID builds the id-keyed projection explicitly, for callers (the
// dispatch layer) that need to honor the wire contract's map<id, T> shape.
func ByID(objs []value.Object) map[string]value.Object {
	out := make(map[string]value.Object, len(objs))
	for _, o := range objs {
		out[idOf(o)] = o
	}
	return out
}
