// Package memory provides in-memory implementations of driven ports,
// used by tests and when the on-disk cache is disabled.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory implementation of driven.SnapshotStore.
type SnapshotStore struct {
	mu        sync.RWMutex
	sources   []domain.Source
	fetchedAt time.Time
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Replace swaps the stored snapshot.
func (s *SnapshotStore) Replace(_ context.Context, sources []domain.Source, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append([]domain.Source(nil), sources...)
	s.fetchedAt = fetchedAt
	return nil
}

// List returns a copy of the stored snapshot.
func (s *SnapshotStore) List(_ context.Context) ([]domain.Source, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sources == nil {
		return nil, s.fetchedAt, nil
	}
	return append([]domain.Source(nil), s.sources...), s.fetchedAt, nil
}

// Get retrieves a stored source by ID.
func (s *SnapshotStore) Get(_ context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := domain.FindSource(s.sources, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return src, nil
}
