package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// axisEmbedder maps known query strings to fixed vectors.
type axisEmbedder struct {
	vectors map[string][]float32
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (e *axisEmbedder) Dimensions() int            { return 3 }
func (e *axisEmbedder) ModelName() string          { return "axis" }
func (e *axisEmbedder) Ping(context.Context) error { return nil }
func (e *axisEmbedder) Close() error               { return nil }

func newRetrievalFixture(t *testing.T) *Retriever {
	t.Helper()
	store := vectormem.New()
	require.NoError(t, store.Upsert(context.Background(), []domain.VectorRecord{
		{ChunkID: "c1", FileID: "f1", Vector: []float32{1, 0, 0}, Text: "budget report", Position: 0},
		{ChunkID: "c2", FileID: "f1", Vector: []float32{0.9, 0.1, 0}, Text: "budget detail", Position: 1},
		{ChunkID: "c3", FileID: "f2", Vector: []float32{0, 1, 0}, Text: "staffing plan", Position: 0},
		{ChunkID: "c4", FileID: "f2", Vector: []float32{1, 0, 0}, Text: "budget summary", Position: 1},
	}))
	return NewRetriever(store, &axisEmbedder{vectors: map[string][]float32{
		"budget": {1, 0, 0},
		"people": {0, 1, 0},
	}})
}

func TestTopKOrderingWithTieBreak(t *testing.T) {
	r := newRetrievalFixture(t)

	results, err := r.TopK(context.Background(), "budget", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// c1 and c4 tie at score 1.0; ingestion order breaks the tie.
	assert.Equal(t, "c1", results[0].Record.ChunkID)
	assert.Equal(t, "c4", results[1].Record.ChunkID)
	assert.Equal(t, "c2", results[2].Record.ChunkID)
	assert.GreaterOrEqual(t, results[0].Score, results[2].Score)
}

func TestTopKRejectsBadK(t *testing.T) {
	r := newRetrievalFixture(t)
	_, err := r.TopK(context.Background(), "budget", 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestThreshold(t *testing.T) {
	r := newRetrievalFixture(t)

	results, err := r.Threshold(context.Background(), "people", 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c3", results[0].Record.ChunkID)
}

func TestExactSubstring(t *testing.T) {
	r := newRetrievalFixture(t)

	records, err := r.Exact(context.Background(), "budget")
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = r.Exact(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDump(t *testing.T) {
	r := newRetrievalFixture(t)

	records, err := r.Dump(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestEmptyQueryRejected(t *testing.T) {
	r := newRetrievalFixture(t)
	_, err := r.TopK(context.Background(), "", 5)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
