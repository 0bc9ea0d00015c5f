// Package storage provides the Badger-backed snapshot cache for Scope.
//
// The cache keeps the last good graph fetched per project so that a failing
// backend degrades to stale-but-available data instead of an empty view.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/scopegraph/scope-go/internal/graph"
)

// Key prefixes for different record types
const (
	prefixGraph = "g:" // graph snapshot data
	prefixMeta  = "m:" // snapshot metadata
)

// Snapshot is one cached graph fetch.
type Snapshot struct {
	Nodes []*graph.GraphNode `json:"nodes"`
	Edges []*graph.GraphEdge `json:"edges"`
}

// Meta describes a cached snapshot.
type Meta struct {
	ProjectID string      `json:"project_id"`
	FetchedAt time.Time   `json:"fetched_at"`
	Stats     graph.Stats `json:"stats"`
}

// SnapshotStore is a BadgerDB-backed snapshot cache.
type SnapshotStore struct {
	db          *badger.DB
	mu          sync.RWMutex
	initialized bool
}

// NewSnapshotStore creates an uninitialized snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (s *SnapshotStore) Initialize(path string, readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	s.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	s.initialized = true
	return nil
}

// Close releases all resources held by the store.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	s.initialized = false
	return err
}

// SaveGraph replaces the cached snapshot for a project.
func (s *SnapshotStore) SaveGraph(ctx context.Context, projectID string, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	meta := Meta{
		ProjectID: projectID,
		FetchedAt: time.Now().UTC(),
		Stats:     graph.Build(snap.Nodes, snap.Edges).ComputeStats(),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set(graphKey(projectID), data); err != nil {
		return fmt.Errorf("setting snapshot: %w", err)
	}
	if err := wb.Set(metaKey(projectID), metaData); err != nil {
		return fmt.Errorf("setting meta: %w", err)
	}

	return wb.Flush()
}

// LoadGraph returns the cached snapshot for a project, or nil if none is
// cached.
func (s *SnapshotStore) LoadGraph(ctx context.Context, projectID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	var snap *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(graphKey(projectID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			snap = &Snapshot{}
			return json.Unmarshal(val, snap)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return snap, nil
}

// GetMeta returns the metadata for a cached project, or nil if none.
func (s *SnapshotStore) GetMeta(ctx context.Context, projectID string) (*Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	var meta *Meta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(projectID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			meta = &Meta{}
			return json.Unmarshal(val, meta)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading meta: %w", err)
	}
	return meta, nil
}

// ListProjects returns metadata for every cached project.
func (s *SnapshotStore) ListProjects(ctx context.Context) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	var metas []Meta
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixMeta)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var meta Meta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				continue
			}
			metas = append(metas, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return metas, nil
}

// Remove deletes the cached snapshot and metadata for a project.
func (s *SnapshotStore) Remove(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(graphKey(projectID)); err != nil {
			return err
		}
		return txn.Delete(metaKey(projectID))
	})
}

func graphKey(projectID string) []byte {
	return []byte(prefixGraph + projectID)
}

func metaKey(projectID string) []byte {
	return []byte(prefixMeta + projectID)
}
