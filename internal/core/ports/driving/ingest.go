package driving

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// IngestRequest names one file to ingest.
type IngestRequest struct {
	// Path is the source file path.
	Path string

	// DocType classifies the file. Empty defaults to "document".
	DocType domain.DocType
}

// FileOutcome reports the result of ingesting one file. Ingestion
// failures are isolated per file; a batch reports per-file outcomes
// rather than succeeding or failing as a whole.
type FileOutcome struct {
	// Path is the source file path.
	Path string

	// FileID is the stable file ID, when registration succeeded.
	FileID string

	// Status describes what happened to the file.
	Status IngestStatus

	// Version is the manifest version after ingestion.
	Version int

	// ChunkCount is the number of chunks stored.
	ChunkCount int

	// Degraded lists metadata fields omitted because a stage degraded.
	Degraded []string

	// Err is the per-file failure, nil on success.
	Err error
}

// IngestStatus classifies a per-file ingestion outcome.
type IngestStatus string

// Ingestion outcome states.
const (
	StatusIngested  IngestStatus = "ingested"
	StatusUnchanged IngestStatus = "unchanged"
	StatusUpdated   IngestStatus = "updated"
	StatusFailed    IngestStatus = "failed"
)

// Ingestor runs the ingestion enrichment pipeline over file batches.
type Ingestor interface {
	// IngestBatch registers, splits, enriches, composes and stores a
	// batch of files. Documents are processed concurrently up to the
	// configured worker bound; writes per file ID are serialised.
	IngestBatch(ctx context.Context, reqs []IngestRequest) ([]FileOutcome, error)

	// ReingestAll re-runs the pipeline for every manifest entry,
	// forcing chunk and embedding regeneration.
	ReingestAll(ctx context.Context) ([]FileOutcome, error)
}

// CorpusService manages the corpus file inventory.
type CorpusService interface {
	// List returns all manifest entries.
	List(ctx context.Context) ([]domain.ManifestEntry, error)

	// Show returns the manifest entry for one file ID.
	Show(ctx context.Context, fileID string) (*domain.ManifestEntry, error)

	// Remove deletes the manifest entry and all stored records for a
	// file ID.
	Remove(ctx context.Context, fileID string) error

	// Status reports the vector store record count and the manifest
	// chunk total, for drift detection.
	Status(ctx context.Context) (*StoreStatus, error)
}

// StoreStatus reports vector store health relative to the manifest.
type StoreStatus struct {
	// Files is the number of manifest entries.
	Files int

	// ManifestChunks is the chunk total recorded in the manifest.
	ManifestChunks int

	// StoredRecords is the record count reported by the vector store.
	StoredRecords int
}
