package driving

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// RetrievalService executes queries against the vector store. It is
// shared by the CLI surface and by analysis plugins.
type RetrievalService interface {
	// TopK embeds the query and returns the k most similar records,
	// ordered by descending score with ingestion-order tie break.
	TopK(ctx context.Context, query string, k int) ([]domain.QueryResult, error)

	// Threshold embeds the query and returns all records scoring at
	// least minScore.
	Threshold(ctx context.Context, query string, minScore float64) ([]domain.QueryResult, error)

	// Exact returns records containing the literal substring.
	Exact(ctx context.Context, substring string) ([]domain.VectorRecord, error)

	// Dump returns a snapshot of every stored record.
	Dump(ctx context.Context) ([]domain.VectorRecord, error)
}

// AnalysisRunner dispatches analysis plugins by name.
type AnalysisRunner interface {
	// Run looks up a plugin by name and executes it. Unknown names fail
	// with domain.ErrPluginNotFound before any retrieval occurs.
	Run(ctx context.Context, name string, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error)

	// Describe lists registered plugins as name -> description.
	Describe() map[string]string
}
