package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// VersionTracker assigns each source file a stable identity and detects
// content changes via hashing against the manifest.
type VersionTracker struct {
	manifest driven.ManifestStore
}

// NewVersionTracker creates a version tracker over the manifest store.
func NewVersionTracker(manifest driven.ManifestStore) *VersionTracker {
	return &VersionTracker{manifest: manifest}
}

// Registration reports the identity decision for one file.
type Registration struct {
	// File carries the stable ID, hash and version for this content.
	File domain.CorpusFile

	// IsNew is true when no prior manifest entry existed for the path.
	IsNew bool

	// VersionChanged is true when the content hash differs from the
	// manifest. All previously stored chunks for the file ID must be
	// invalidated before new chunks are stored.
	VersionChanged bool
}

// Register computes the content hash for path and resolves it against
// the manifest. It never writes the manifest: the manifest entry is
// saved by the caller only after the new chunks are stored, so a
// failed ingestion leaves no partial version bump.
func (t *VersionTracker) Register(ctx context.Context, path string, content []byte, docType domain.DocType) (*Registration, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty content for %s", domain.ErrIOFailure, path)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	entry, err := t.manifest.GetByPath(ctx, path)
	switch {
	case err == nil:
		file := domain.CorpusFile{
			ID:          entry.FileID,
			Path:        path,
			Filename:    filepath.Base(path),
			ContentHash: hash,
			DocType:     entry.DocType,
			Version:     entry.Version,
		}
		if docType != "" {
			file.DocType = docType
		}
		if entry.ContentHash == hash {
			// Idempotent: ingestion for this file is a no-op.
			return &Registration{File: file}, nil
		}
		file.Version = entry.Version + 1
		return &Registration{File: file, VersionChanged: true}, nil

	case errors.Is(err, domain.ErrNotFound):
		if docType == "" {
			docType = domain.DocTypeDocument
		}
		return &Registration{
			File: domain.CorpusFile{
				ID:          uuid.New().String(),
				Path:        path,
				Filename:    filepath.Base(path),
				ContentHash: hash,
				DocType:     docType,
				Version:     1,
			},
			IsNew: true,
		}, nil

	default:
		return nil, fmt.Errorf("lookup manifest for %s: %w", path, err)
	}
}
