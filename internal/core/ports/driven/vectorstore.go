package driven

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// VectorStore is the narrow interface required from the external vector
// record engine. It persists (text, vector, metadata) triples and
// answers similarity, threshold and exact-match queries.
//
// The store is not required to offer cross-document transactions.
// Per-document atomicity is enforced by the caller: new chunks are
// fully computed before DeleteByFileID and Upsert are issued
// back-to-back for the same file ID.
//
// Implementations include:
//   - SQLite (local default, brute-force cosine scan)
//   - Qdrant (remote ANN engine over REST)
//   - in-memory (tests)
type VectorStore interface {
	// Upsert stores records keyed by chunk ID.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// DeleteByFileID removes every record belonging to a file ID.
	DeleteByFileID(ctx context.Context, fileID string) error

	// QueryTopK returns the k nearest records by cosine similarity,
	// ordered by descending score then ascending ingestion position.
	QueryTopK(ctx context.Context, vector []float32, k int) ([]domain.QueryResult, error)

	// QueryThreshold returns all records scoring at least minScore,
	// ordered like QueryTopK.
	QueryThreshold(ctx context.Context, vector []float32, minScore float64) ([]domain.QueryResult, error)

	// QueryExact returns records whose text contains the literal
	// substring, in ingestion order.
	QueryExact(ctx context.Context, substring string) ([]domain.VectorRecord, error)

	// ListAll returns a snapshot of every record in ingestion order.
	ListAll(ctx context.Context) ([]domain.VectorRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// UpdateMetadata overwrites the named metadata fields on the given
	// chunks as one logical write, leaving other fields untouched.
	UpdateMetadata(ctx context.Context, chunkIDs []string, fields map[string]any) error

	// Close releases resources.
	Close() error
}
