// Package index implements the secondary-index engine: user-declared
// indexes on entity properties, maintained transactionally in lockstep
// with entity writes (spec.md §4.3).
//
// The in-memory declaration snapshot is grounded on the teacher's
// SchemaManager (pkg/storage/schema.go): a mutex-guarded map refreshed
// whenever a declaration changes, so readers never observe a partially
// loaded set (spec.md §5, "block concurrency" critical region).
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/relaydb/graphstore/pkg/chunked"
	graphstore "github.com/relaydb/graphstore/pkg/errs"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/value"
)

// DeclarationPrefix is the key prefix under which every index declaration
// lives (spec.md §3: "All indexes live under prefix idx:").
const DeclarationPrefix = "idx:"

// Declaration is one user-declared index: id = "idx:" + property.
type Declaration struct {
	ID       string `json:"id"`
	Property string `json:"property"`
}

func declarationID(property string) string { return DeclarationPrefix + property }

// EntryKey is the storage key for the index row covering one property
// value: "<property>--<propertyValue>".
func EntryKey(property, propertyValue string) string {
	return property + "--" + propertyValue
}

// Engine owns the set of declared indexes and the helpers the Entity
// Engine uses to expand entity writes into index rows.
type Engine struct {
	store *chunked.Store

	mu      sync.RWMutex
	decls   map[string]Declaration // keyed by declaration id
}

func New(store *chunked.Store) *Engine {
	return &Engine{store: store, decls: make(map[string]Declaration)}
}

// refresh reloads the declaration snapshot from storage under the
// engine's write lock, so no reader observes a half-updated set.
func (e *Engine) refresh(ctx context.Context) error {
	entries, err := e.store.ListPrefix(ctx, DeclarationPrefix, kv.ListOptions{AllowConcurrency: true})
	if err != nil {
		return graphstore.Unexpected("listing index declarations", err)
	}

	next := make(map[string]Declaration, len(entries))
	for _, entry := range entries {
		obj, ok := entry.Value.Object()
		if !ok {
			continue
		}
		d := Declaration{ID: entry.Key}
		if p, ok := obj["property"]; ok {
			d.Property = p.String()
		}
		next[entry.Key] = d
	}

	e.mu.Lock()
	e.decls = next
	e.mu.Unlock()
	return nil
}

func declarationToObject(d Declaration) value.Object {
	return value.Object{
		"id":       value.FromString(d.ID),
		"property": value.FromString(d.Property),
	}
}

// CreateIndex persists a new declaration and refreshes the snapshot.
func (e *Engine) CreateIndex(ctx context.Context, property string) (Declaration, error) {
	d := Declaration{ID: declarationID(property), Property: property}
	if err := e.store.PutMany(ctx, map[string]value.Value{
		d.ID: value.FromObject(declarationToObject(d)),
	}); err != nil {
		return Declaration{}, graphstore.Unexpected("creating index", err)
	}
	if err := e.refresh(ctx); err != nil {
		return Declaration{}, err
	}
	return d, nil
}

// UpdateIndex overwrites the declaration at id and refreshes the snapshot.
func (e *Engine) UpdateIndex(ctx context.Context, id, property string) (Declaration, error) {
	d := Declaration{ID: id, Property: property}
	if err := e.store.PutMany(ctx, map[string]value.Value{
		id: value.FromObject(declarationToObject(d)),
	}); err != nil {
		return Declaration{}, graphstore.Unexpected("updating index", err)
	}
	if err := e.refresh(ctx); err != nil {
		return Declaration{}, err
	}
	return d, nil
}

// ReadIndex returns the declaration for id, or NotFound.
func (e *Engine) ReadIndex(ctx context.Context, id string) (Declaration, error) {
	e.mu.RLock()
	d, ok := e.decls[id]
	e.mu.RUnlock()
	if !ok {
		return Declaration{}, graphstore.NotFound("index " + id)
	}
	return d, nil
}

// RemoveIndex deletes the declaration at id; the bool reports whether
// anything was actually deleted.
func (e *Engine) RemoveIndex(ctx context.Context, id string) (bool, error) {
	e.mu.RLock()
	_, existed := e.decls[id]
	e.mu.RUnlock()

	if err := e.store.DeleteMany(ctx, []string{id}); err != nil {
		return false, graphstore.Unexpected("removing index", err)
	}
	if err := e.refresh(ctx); err != nil {
		return false, err
	}
	return existed, nil
}

// ListIndexes returns every declaration, keyed by id.
func (e *Engine) ListIndexes() map[string]Declaration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]Declaration, len(e.decls))
	for k, v := range e.decls {
		out[k] = v
	}
	return out
}

// declarations returns a stable-ordered snapshot of the current
// declarations, for deterministic iteration in expandWrite/dangling.
func (e *Engine) declarations() []Declaration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Declaration, 0, len(e.decls))
	for _, d := range e.decls {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExpandWrite returns the primary (key, value) entry plus one index entry
// per declared index whose property appears in value (spec.md §4.3).
func (e *Engine) ExpandWrite(key string, obj value.Object) map[string]value.Value {
	out := map[string]value.Value{key: value.FromObject(obj)}
	for _, d := range e.declarations() {
		if v, ok := obj[d.Property]; ok {
			out[EntryKey(d.Property, v.String())] = value.FromObject(obj)
		}
	}
	return out
}

// IndexedKeysFor returns the set of index storage keys obj would occupy
// under every currently declared index.
func (e *Engine) IndexedKeysFor(obj value.Object) []string {
	var keys []string
	for _, d := range e.declarations() {
		if v, ok := obj[d.Property]; ok {
			keys = append(keys, EntryKey(d.Property, v.String()))
		}
	}
	return keys
}

// DeleteKeysFor returns the index keys that actually cover obj, derived
// from its own properties rather than guessed from the entity's primary
// key. spec.md §9 recommends this fix over the reference source's
// appendDeleteKeys asymmetry; removeQuery uses this to avoid leaving
// stale index rows when the entity's key differs from its indexed values.
func (e *Engine) DeleteKeysFor(obj value.Object) []string {
	return e.IndexedKeysFor(obj)
}

// Dangling returns indexedKeysFor(old) \ indexedKeysFor(new): the index
// rows an update must delete because the new state no longer justifies
// them.
func (e *Engine) Dangling(old, next value.Object) []string {
	newKeys := make(map[string]struct{})
	for _, k := range e.IndexedKeysFor(next) {
		newKeys[k] = struct{}{}
	}
	var out []string
	for _, k := range e.IndexedKeysFor(old) {
		if _, stillCovered := newKeys[k]; !stillCovered {
			out = append(out, k)
		}
	}
	return out
}
