// Package blob provides the filesystem-backed blob store backup and
// restore write their snapshots through, grounded on the teacher's
// Neo4j export/import idiom (pkg/storage/loader.go's
// os.Create+json.NewEncoder / os.Open+json.NewDecoder pairing), generalized
// from "one file" to "a named blob under a store".
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	graphstore "github.com/relaydb/graphstore/pkg/errs"
)

// Store is the contract backup.Service writes snapshots through. Blob
// names are forward-slash paths relative to the store's root, e.g.
// "partition-1/graph-store-1700000000000.json".
type Store interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// FileStore is the production Store, rooted at a directory on disk.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Write creates any missing parent directories, then writes data to name.
func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	p := s.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return graphstore.Unexpected("creating blob directory", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return graphstore.Unexpected("writing blob "+name, err)
	}
	return nil
}

// Read returns the bytes stored at name, or NotFound if it does not exist.
func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, graphstore.NotFound("blob " + name)
		}
		return nil, graphstore.Unexpected("reading blob "+name, err)
	}
	return data, nil
}

// List returns every blob name under prefix, sorted, descending in
// recency is not guaranteed — callers sort by the embedded timestamp if
// they need recency order.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	root := s.path(prefix)
	var out []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, graphstore.Unexpected(fmt.Sprintf("listing blobs under %q", prefix), err)
	}
	sort.Strings(out)
	return out, nil
}

// HasPrefix is a small helper for callers filtering a List result by a
// logical prefix rather than a filesystem directory boundary.
func HasPrefix(name, prefix string) bool {
	return strings.HasPrefix(name, prefix)
}
