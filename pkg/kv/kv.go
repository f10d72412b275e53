// Package kv defines the ordered key-value backend contract that the rest
// of graphstore is built on: single-partition transactions, prefix
// listing, and a hard cap on how many keys one batched call may touch.
//
// Two implementations are provided: BadgerBackend (production, backed by
// github.com/dgraph-io/badger/v4, grounded on the teacher's BadgerEngine/
// BadgerTransaction) and MemBackend (tests, grounded on the teacher's
// MemoryEngine). Callers needing >MaxBatchKeys keys per operation use
// pkg/chunked, not this package directly.
package kv

import (
	"context"

	"github.com/relaydb/graphstore/pkg/value"
)

// MaxBatchKeys is the hard per-call limit on batched get/put/delete,
// matching the KV Backend contract of spec.md §2 ("a hard limit of 128
// keys per batched get/put/delete").
const MaxBatchKeys = 128

// Entry is one listed key/value pair.
type Entry struct {
	Key   string
	Value value.Value
}

// ListOptions controls a prefix scan.
type ListOptions struct {
	// AllowConcurrency tags the read as safe to reorder ahead of other
	// unfinished reads on the same partition (spec.md §5). The Badger
	// backend uses it to skip value prefetch until the caller asks.
	AllowConcurrency bool

	// Limit caps the number of entries returned; 0 means unlimited.
	Limit int

	// Reverse iterates the prefix in descending key order.
	Reverse bool

	// StartAfter, when non-empty, skips forward past this key (exclusive)
	// before collecting entries. Entity and relationship pagination do not
	// set it: both read the full prefix or set and page through it in
	// memory with pkg/page.
	StartAfter string

	// End, when non-empty, stops at this key (inclusive).
	End string
}

// Backend is the ordered KV store contract. Every method is safe to call
// concurrently; Transact is the only way to get atomicity across more than
// one key.
type Backend interface {
	Get(ctx context.Context, key string, allowConcurrency bool) (value.Value, bool, error)
	GetMany(ctx context.Context, keys []string, allowConcurrency bool) (map[string]value.Value, error)
	PutMany(ctx context.Context, entries map[string]value.Value) error
	DeleteMany(ctx context.Context, keys []string) error
	ListPrefix(ctx context.Context, prefix string, opts ListOptions) ([]Entry, error)
	Transact(ctx context.Context, fn func(Txn) error) error
	Close() error
}

// Txn is a single atomic unit of work against a Backend.
type Txn interface {
	Get(key string) (value.Value, bool, error)
	Put(key string, v value.Value) error
	Delete(key string) error
}

// ErrBatchTooLarge-style guard: callers must chunk above MaxBatchKeys.
func checkBatchSize(n int) error {
	if n > MaxBatchKeys {
		return errBatchTooLarge(n)
	}
	return nil
}
