package services

import (
	"context"
	"fmt"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
)

var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever executes queries against the vector store, embedding query
// text with the same model used at ingestion time.
type Retriever struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
}

// NewRetriever creates the retrieval service.
func NewRetriever(store driven.VectorStore, embedder driven.EmbeddingService) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// TopK returns the k most similar records for the query.
func (r *Retriever) TopK(ctx context.Context, query string, k int) ([]domain.QueryResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrConfiguration, k)
	}
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.QueryTopK(ctx, vector, k)
}

// Threshold returns all records scoring at least minScore.
func (r *Retriever) Threshold(ctx context.Context, query string, minScore float64) ([]domain.QueryResult, error) {
	vector, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.QueryThreshold(ctx, vector, minScore)
}

// Exact returns records containing the literal substring. No embedding
// model is involved.
func (r *Retriever) Exact(ctx context.Context, substring string) ([]domain.VectorRecord, error) {
	if substring == "" {
		return nil, fmt.Errorf("%w: empty search string", domain.ErrConfiguration)
	}
	return r.store.QueryExact(ctx, substring)
}

// Dump returns a snapshot of every stored record.
func (r *Retriever) Dump(ctx context.Context) ([]domain.VectorRecord, error) {
	return r.store.ListAll(ctx)
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrConfiguration)
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrServiceUnavailable, err)
	}
	return vector, nil
}
