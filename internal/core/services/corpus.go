package services

import (
	"context"
	"fmt"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
)

var _ driving.CorpusService = (*CorpusManager)(nil)

// CorpusManager exposes the corpus file inventory over the manifest and
// the vector store.
type CorpusManager struct {
	manifest driven.ManifestStore
	store    driven.VectorStore
}

// NewCorpusManager creates the corpus inventory service.
func NewCorpusManager(manifest driven.ManifestStore, store driven.VectorStore) *CorpusManager {
	return &CorpusManager{manifest: manifest, store: store}
}

// List returns all manifest entries ordered by path.
func (c *CorpusManager) List(ctx context.Context) ([]domain.ManifestEntry, error) {
	return c.manifest.List(ctx)
}

// Show returns the manifest entry for one file ID.
func (c *CorpusManager) Show(ctx context.Context, fileID string) (*domain.ManifestEntry, error) {
	return c.manifest.Get(ctx, fileID)
}

// Remove deletes a file from the corpus: all stored records first, then
// the manifest entry, so a partial failure leaves the file listed and
// re-removable rather than orphaned.
func (c *CorpusManager) Remove(ctx context.Context, fileID string) error {
	if _, err := c.manifest.Get(ctx, fileID); err != nil {
		return err
	}
	if err := c.store.DeleteByFileID(ctx, fileID); err != nil {
		return fmt.Errorf("delete records for %s: %w", fileID, err)
	}
	if err := c.manifest.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete manifest entry %s: %w", fileID, err)
	}
	return nil
}

// Status reports the stored record count against the manifest chunk
// total. A mismatch indicates drift between manifest and store.
func (c *CorpusManager) Status(ctx context.Context) (*driving.StoreStatus, error) {
	entries, err := c.manifest.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list manifest: %w", err)
	}

	status := &driving.StoreStatus{Files: len(entries)}
	for _, e := range entries {
		status.ManifestChunks += e.ChunkCount
	}

	count, err := c.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	status.StoredRecords = count

	return status, nil
}
