package kv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/relaydb/graphstore/pkg/value"
)

// MemBackend is a thread-safe in-memory Backend, grounded on the teacher's
// MemoryEngine: a plain map guarded by a single RWMutex, used for tests and
// for small/ephemeral partitions that do not need durability.
type MemBackend struct {
	mu     sync.RWMutex
	data   map[string]value.Value
	closed bool
}

func NewMemBackend() *MemBackend {
	return &MemBackend{data: make(map[string]value.Value)}
}

func (m *MemBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemBackend) Get(ctx context.Context, key string, allowConcurrency bool) (value.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return value.Null, false, fmt.Errorf("kv: backend closed")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemBackend) GetMany(ctx context.Context, keys []string, allowConcurrency bool) (map[string]value.Value, error) {
	if err := checkBatchSize(len(keys)); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("kv: backend closed")
	}
	out := make(map[string]value.Value, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemBackend) PutMany(ctx context.Context, entries map[string]value.Value) error {
	if err := checkBatchSize(len(entries)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("kv: backend closed")
	}
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

func (m *MemBackend) DeleteMany(ctx context.Context, keys []string) error {
	if err := checkBatchSize(len(keys)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("kv: backend closed")
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemBackend) ListPrefix(ctx context.Context, prefix string, opts ListOptions) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("kv: backend closed")
	}

	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if opts.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	var out []Entry
	for _, k := range keys {
		if opts.StartAfter != "" {
			if opts.Reverse {
				if k >= opts.StartAfter {
					continue
				}
			} else if k <= opts.StartAfter {
				continue
			}
		}
		if opts.End != "" {
			if opts.Reverse {
				if k < opts.End {
					break
				}
			} else if k > opts.End {
				break
			}
		}
		out = append(out, Entry{Key: k, Value: m.data[k]})
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// memTxn buffers writes and applies them atomically on Commit, emulating
// Badger's snapshot-isolated transaction over the plain map.
type memTxn struct {
	backend *MemBackend
	writes  map[string]value.Value
	deletes map[string]bool
}

func (t *memTxn) Get(key string) (value.Value, bool, error) {
	if t.deletes[key] {
		return value.Null, false, nil
	}
	if v, ok := t.writes[key]; ok {
		return v, true, nil
	}
	t.backend.mu.RLock()
	v, ok := t.backend.data[key]
	t.backend.mu.RUnlock()
	return v, ok, nil
}

func (t *memTxn) Put(key string, v value.Value) error {
	delete(t.deletes, key)
	t.writes[key] = v
	return nil
}

func (t *memTxn) Delete(key string) error {
	delete(t.writes, key)
	t.deletes[key] = true
	return nil
}

func (m *MemBackend) Transact(ctx context.Context, fn func(Txn) error) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return fmt.Errorf("kv: backend closed")
	}

	txn := &memTxn{backend: m, writes: make(map[string]value.Value), deletes: make(map[string]bool)}
	if err := fn(txn); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range txn.deletes {
		delete(m.data, k)
	}
	for k, v := range txn.writes {
		m.data[k] = v
	}
	return nil
}
