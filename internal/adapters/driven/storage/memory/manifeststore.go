// Package memory provides in-memory store implementations used in
// tests and as lightweight defaults.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = (*ManifestStore)(nil)

// ManifestStore is an in-memory implementation of driven.ManifestStore.
type ManifestStore struct {
	mu      sync.RWMutex
	entries map[string]domain.ManifestEntry // keyed by file ID
}

// NewManifestStore creates a new in-memory manifest store.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{
		entries: make(map[string]domain.ManifestEntry),
	}
}

// Save stores or updates a manifest entry.
func (s *ManifestStore) Save(_ context.Context, entry domain.ManifestEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.FileID] = entry
	return nil
}

// GetByPath retrieves the entry for a source path.
func (s *ManifestStore) GetByPath(_ context.Context, path string) (*domain.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Path == path {
			entry := e
			return &entry, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Get retrieves the entry for a file ID.
func (s *ManifestStore) Get(_ context.Context, fileID string) (*domain.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Delete removes the entry for a file ID.
func (s *ManifestStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, fileID)
	return nil
}

// List returns all entries ordered by path.
func (s *ManifestStore) List(_ context.Context) ([]domain.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.ManifestEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}
