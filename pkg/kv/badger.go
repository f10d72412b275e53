package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/relaydb/graphstore/pkg/value"
)

// BadgerBackend is the production Backend, persisting one partition's
// flat key-value namespace to a single embedded github.com/dgraph-io/badger/v4
// database rooted at a directory. Grounded on the teacher's BadgerEngine:
// same "open one badger.DB per partition, wrap every multi-key mutation in
// a badger.Txn" shape, narrowed to graphstore's flat string-keyed namespace
// (no node/edge/label indexing — that belongs to the engines above this
// package).
type BadgerBackend struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

// BadgerOptions configures a BadgerBackend.
type BadgerOptions struct {
	// DataDir is the directory backing this partition. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs Badger in memory-only mode, for tests.
	InMemory bool

	// SyncWrites forces fsync after each write; slower, more durable.
	SyncWrites bool

	Logger badger.Logger
}

// OpenBadgerBackend opens (creating if necessary) the Badger database for
// one partition.
func OpenBadgerBackend(opts BadgerOptions) (*BadgerBackend, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.DataDir == "" {
			return nil, fmt.Errorf("kv: DataDir required unless InMemory")
		}
		badgerOpts = badger.DefaultOptions(opts.DataDir)
	}
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites)
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func encodeValue(v value.Value) ([]byte, error) {
	return json.Marshal(v)
}

func decodeValue(b []byte) (value.Value, error) {
	var v value.Value
	if err := json.Unmarshal(b, &v); err != nil {
		return value.Null, err
	}
	return v, nil
}

func (b *BadgerBackend) Get(ctx context.Context, key string, allowConcurrency bool) (value.Value, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return value.Null, false, fmt.Errorf("kv: backend closed")
	}

	var out value.Value
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = allowConcurrency
		it := txn.NewKeyIterator([]byte(key), iterOpts)
		defer it.Close()
		it.Rewind()
		if !it.Valid() {
			return nil
		}
		if it.Item().IsDeletedOrExpired() {
			return nil
		}
		return it.Item().Value(func(val []byte) error {
			v, err := decodeValue(val)
			if err != nil {
				return err
			}
			out = v
			found = true
			return nil
		})
	})
	if err != nil {
		return value.Null, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return out, found, nil
}

// GetMany enforces MaxBatchKeys and reads every key inside one read-only
// transaction, following the teacher's pattern of one badger.Txn per
// logical batch rather than one per key.
func (b *BadgerBackend) GetMany(ctx context.Context, keys []string, allowConcurrency bool) (map[string]value.Value, error) {
	if err := checkBatchSize(len(keys)); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("kv: backend closed")
	}

	out := make(map[string]value.Value, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = allowConcurrency
		for _, key := range keys {
			it := txn.NewKeyIterator([]byte(key), iterOpts)
			it.Rewind()
			if !it.Valid() || it.Item().IsDeletedOrExpired() {
				it.Close()
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				v, err := decodeValue(val)
				if err != nil {
					return err
				}
				out[key] = v
				return nil
			})
			it.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv getMany: %w", err)
	}
	return out, nil
}

func (b *BadgerBackend) PutMany(ctx context.Context, entries map[string]value.Value) error {
	if err := checkBatchSize(len(entries)); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("kv: backend closed")
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		for key, v := range entries {
			bytes, err := encodeValue(v)
			if err != nil {
				return fmt.Errorf("encoding %q: %w", key, err)
			}
			if err := txn.Set([]byte(key), bytes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("kv putMany: %w", err)
	}
	return nil
}

func (b *BadgerBackend) DeleteMany(ctx context.Context, keys []string) error {
	if err := checkBatchSize(len(keys)); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("kv: backend closed")
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("kv deleteMany: %w", err)
	}
	return nil
}

func (b *BadgerBackend) ListPrefix(ctx context.Context, prefix string, opts ListOptions) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("kv: backend closed")
	}

	var out []Entry
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = opts.AllowConcurrency
		iterOpts.Reverse = opts.Reverse
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		seekKey := []byte(prefix)
		if opts.Reverse {
			// Badger's reverse iteration seeks from the largest key
			// matching the prefix; append 0xff to start past every key
			// under this prefix.
			seekKey = append([]byte(prefix), 0xff)
		}

		for it.Seek(seekKey); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.Key())

			if opts.StartAfter != "" {
				if opts.Reverse {
					if key >= opts.StartAfter {
						continue
					}
				} else if key <= opts.StartAfter {
					continue
				}
			}
			if opts.End != "" {
				if opts.Reverse {
					if key < opts.End {
						break
					}
				} else if key > opts.End {
					break
				}
			}

			var v value.Value
			if err := item.Value(func(val []byte) error {
				decoded, err := decodeValue(val)
				if err != nil {
					return err
				}
				v = decoded
				return nil
			}); err != nil {
				return err
			}
			out = append(out, Entry{Key: key, Value: v})
			if opts.Limit > 0 && len(out) >= opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv listPrefix %q: %w", prefix, err)
	}
	return out, nil
}

// badgerTxn adapts a *badger.Txn to the Txn interface.
type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key string) (value.Value, bool, error) {
	item, err := t.txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return value.Null, false, nil
	}
	if err != nil {
		return value.Null, false, err
	}
	var out value.Value
	err = item.Value(func(val []byte) error {
		v, err := decodeValue(val)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, true, err
}

func (t *badgerTxn) Put(key string, v value.Value) error {
	b, err := encodeValue(v)
	if err != nil {
		return err
	}
	return t.txn.Set([]byte(key), b)
}

func (t *badgerTxn) Delete(key string) error {
	err := t.txn.Delete([]byte(key))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

// Transact runs fn inside one atomic read-write badger.Txn, mirroring the
// teacher's BadgerTransaction.Commit: fn's writes are invisible to other
// transactions until Commit succeeds, and any error aborts the whole unit.
func (b *BadgerBackend) Transact(ctx context.Context, fn func(Txn) error) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return fmt.Errorf("kv: backend closed")
	}

	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&badgerTxn{txn: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("kv transaction commit: %w", err)
	}
	return nil
}
