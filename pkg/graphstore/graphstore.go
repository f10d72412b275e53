// Package graphstore wires the KV Backend, Read Cache, Chunked KV layer,
// Index Engine, Relationship Engine, Entity Engine, and Backup Service
// into one store handle per partition, grounded on the teacher's
// top-level wiring in cmd/nornicdb/main.go (construct engine, construct
// cache, construct server, in that order).
package graphstore

import (
	"context"
	"time"

	"github.com/relaydb/graphstore/pkg/backup"
	"github.com/relaydb/graphstore/pkg/blob"
	"github.com/relaydb/graphstore/pkg/cache"
	"github.com/relaydb/graphstore/pkg/chunked"
	"github.com/relaydb/graphstore/pkg/config"
	"github.com/relaydb/graphstore/pkg/entity"
	"github.com/relaydb/graphstore/pkg/index"
	"github.com/relaydb/graphstore/pkg/kv"
	"github.com/relaydb/graphstore/pkg/logging"
	"github.com/relaydb/graphstore/pkg/relationship"
)

// Store is a fully wired graphstore partition: every engine plus the
// backend and cache underneath them.
type Store struct {
	cfg *config.Config

	backend kv.Backend
	cache   *cache.ReadCache
	chunked *chunked.Store

	Index        *index.Engine
	Relationship *relationship.Engine
	Entity       *entity.Engine
	Backup       *backup.Service
}

// Open constructs a Store from cfg: the concrete KV backend (Badger, or
// MemBackend when cfg.Partition.InMemory), the Read Cache, the Chunked KV
// layer, and every engine above it.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	logging.SetLevel(cfg.Logging.Level)
	logging.Infof("graphstore", "opening partition %q (inMemory=%v, dataDir=%q)", cfg.Partition.ID, cfg.Partition.InMemory, cfg.Partition.DataDir)

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	readCache := cache.New()
	if !cfg.Cache.Enabled {
		readCache = cache.NewDisabled()
	}

	chunkedStore := chunked.New(backend, readCache)
	indexEngine := index.New(chunkedStore)
	relEngine := relationship.New(chunkedStore)
	entityEngine := entity.New(chunkedStore, indexEngine, relEngine)
	blobStore := blob.NewFileStore(cfg.Backup.Dir)
	backupService := backup.New(chunkedStore, blobStore, cfg.Partition.ID)

	return &Store{
		cfg:          cfg,
		backend:      backend,
		cache:        readCache,
		chunked:      chunkedStore,
		Index:        indexEngine,
		Relationship: relEngine,
		Entity:       entityEngine,
		Backup:       backupService,
	}, nil
}

func openBackend(cfg *config.Config) (kv.Backend, error) {
	if cfg.Partition.InMemory {
		return kv.NewMemBackend(), nil
	}

	deadline := time.Now().Add(config.StartupGracePeriod)
	var lastErr error
	for {
		backend, err := kv.OpenBadgerBackend(kv.BadgerOptions{
			DataDir:    cfg.Partition.DataDir,
			SyncWrites: cfg.Partition.SyncWrites,
		})
		if err == nil {
			return backend, nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			return nil, Unexpected("opening badger backend after retrying the lock-wait grace period", lastErr)
		}
		logging.Warnf("graphstore", "badger open failed, retrying before grace period expires: %v", err)
		time.Sleep(100 * time.Millisecond)
	}
}

// Stats reports the Read Cache's hit/miss counters for this partition.
func (s *Store) Stats() cache.Stats {
	return s.cache.Stats()
}

// Close releases the underlying backend's resources.
func (s *Store) Close() error {
	logging.Infof("graphstore", "closing partition %q", s.cfg.Partition.ID)
	return s.backend.Close()
}
