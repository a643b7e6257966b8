package driven

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// ManifestStore persists the per-file identity, hash and version
// records. It is the single source of truth for change detection.
// Backed by SQLite.
type ManifestStore interface {
	// Save stores or updates a manifest entry, keyed by file ID.
	Save(ctx context.Context, entry domain.ManifestEntry) error

	// GetByPath retrieves the entry for a source path.
	// Returns domain.ErrNotFound when the path has never been ingested.
	GetByPath(ctx context.Context, path string) (*domain.ManifestEntry, error)

	// Get retrieves the entry for a file ID.
	Get(ctx context.Context, fileID string) (*domain.ManifestEntry, error)

	// Delete removes the entry for a file ID.
	Delete(ctx context.Context, fileID string) error

	// List returns all entries ordered by path.
	List(ctx context.Context) ([]domain.ManifestEntry, error)
}
