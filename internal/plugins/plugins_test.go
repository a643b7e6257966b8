package plugins_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/plugins"
)

// scriptLLM answers every call with the same text.
type scriptLLM struct {
	reply string
	calls int
}

func (m *scriptLLM) Generate(_ context.Context, _ domain.ModelRole, _ string, _ driven.GenerateOptions) (string, error) {
	m.calls++
	return m.reply, nil
}

func (m *scriptLLM) Chat(ctx context.Context, role domain.ModelRole, _ []driven.ChatMessage, opts driven.GenerateOptions) (string, error) {
	return m.Generate(ctx, role, "", opts)
}

func (m *scriptLLM) Ping(context.Context) error { return nil }
func (m *scriptLLM) Close() error               { return nil }

// stubRetriever serves canned results for retrieve-then-reason plugins.
type stubRetriever struct {
	results []domain.QueryResult
}

func (r *stubRetriever) TopK(_ context.Context, _ string, k int) ([]domain.QueryResult, error) {
	if k > len(r.results) {
		k = len(r.results)
	}
	return r.results[:k], nil
}

func (r *stubRetriever) Threshold(context.Context, string, float64) ([]domain.QueryResult, error) {
	return r.results, nil
}

func (r *stubRetriever) Exact(context.Context, string) ([]domain.VectorRecord, error) {
	return nil, nil
}

func (r *stubRetriever) Dump(context.Context) ([]domain.VectorRecord, error) {
	return nil, nil
}

// twoGroupStore seeds a store with two tight groups of vectors plus one
// far-away point.
func twoGroupStore(t *testing.T) *vectormem.Store {
	t.Helper()
	store := vectormem.New()
	records := []domain.VectorRecord{
		{ChunkID: "a1", FileID: "f1", Vector: []float32{1, 0, 0}, Text: "tax policy overview", Metadata: map[string]any{domain.FieldThemes: []string{"tax"}}},
		{ChunkID: "a2", FileID: "f1", Vector: []float32{0.95, 0.05, 0}, Text: "tax policy detail", Metadata: map[string]any{domain.FieldThemes: []string{"tax"}}},
		{ChunkID: "a3", FileID: "f1", Vector: []float32{0.9, 0.1, 0}, Text: "tax policy appendix", Metadata: map[string]any{domain.FieldThemes: []string{"tax"}}},
		{ChunkID: "b1", FileID: "f2", Vector: []float32{0, 1, 0}, Text: "hiring plan overview", Metadata: map[string]any{domain.FieldThemes: []string{"hiring"}}},
		{ChunkID: "b2", FileID: "f2", Vector: []float32{0.05, 0.95, 0}, Text: "hiring plan detail", Metadata: map[string]any{domain.FieldThemes: []string{"hiring"}}},
		{ChunkID: "b3", FileID: "f2", Vector: []float32{0.1, 0.9, 0}, Text: "hiring plan appendix", Metadata: map[string]any{domain.FieldThemes: []string{"hiring"}}},
		{ChunkID: "odd", FileID: "f3", Vector: []float32{0, 0, 1}, Text: "unrelated travel diary", Metadata: map[string]any{domain.FieldThemes: []string{"travel"}}},
	}
	require.NoError(t, store.Upsert(context.Background(), records))
	return store
}

func TestRegistryLookup(t *testing.T) {
	reg := plugins.DefaultRegistry()

	for _, name := range []string{"interpret", "clustering", "anomaly", "visualize", "summarize", "sentiment", "categorize", "entity"} {
		p, err := reg.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
		assert.NotEmpty(t, p.Describe())
	}

	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)

	assert.Len(t, reg.Describe(), 8)
}

func TestClusteringSeedStable(t *testing.T) {
	store := twoGroupStore(t)
	deps := plugins.Deps{Store: store, LLM: &scriptLLM{reply: "Fiscal Policy"}}
	p := &plugins.Clustering{}
	opts := domain.AnalysisOptions{K: 2, Seed: 7}

	first, err := p.Run(context.Background(), deps, opts)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), deps, opts)
	require.NoError(t, err)

	require.Equal(t, len(first.Clusters), len(second.Clusters))
	for i := range first.Clusters {
		assert.Equal(t, first.Clusters[i].ChunkIDs, second.Clusters[i].ChunkIDs)
	}
}

func TestClusteringSeparatesGroups(t *testing.T) {
	store := twoGroupStore(t)
	deps := plugins.Deps{Store: store, LLM: &scriptLLM{reply: "Theme"}}
	p := &plugins.Clustering{}

	outcome, err := p.Run(context.Background(), deps, domain.AnalysisOptions{K: 2, Seed: 3})
	require.NoError(t, err)
	require.Len(t, outcome.Clusters, 2)

	// No cluster mixes tax chunks with hiring chunks.
	for _, cluster := range outcome.Clusters {
		var tax, hiring bool
		for _, id := range cluster.ChunkIDs {
			if strings.HasPrefix(id, "a") {
				tax = true
			}
			if strings.HasPrefix(id, "b") {
				hiring = true
			}
		}
		assert.False(t, tax && hiring, "cluster %v mixes groups", cluster.ChunkIDs)
		assert.Equal(t, "Theme", cluster.AxialTheme)
	}
}

func TestClusteringSavePersistsFields(t *testing.T) {
	store := twoGroupStore(t)
	deps := plugins.Deps{Store: store, LLM: &scriptLLM{reply: "Group Theme"}}
	p := &plugins.Clustering{}

	outcome, err := p.Run(context.Background(), deps, domain.AnalysisOptions{K: 2, Seed: 7, Save: true})
	require.NoError(t, err)

	records, err := store.ListAll(context.Background())
	require.NoError(t, err)
	for _, rec := range records {
		label := rec.StringField(domain.FieldClusterID)
		assert.True(t, strings.HasPrefix(label, "cluster_"), "record %s label %q", rec.ChunkID, label)
		assert.Equal(t, "Group Theme", rec.StringField(domain.FieldAxialTheme))
		// Pre-existing metadata survives the write-back.
		assert.NotEmpty(t, rec.StringsField(domain.FieldThemes))
	}
	assert.NotEmpty(t, outcome.Text)
}

func TestClusteringPreviewDoesNotWrite(t *testing.T) {
	store := twoGroupStore(t)
	deps := plugins.Deps{Store: store, LLM: &scriptLLM{reply: "Theme"}}
	p := &plugins.Clustering{}

	_, err := p.Run(context.Background(), deps, domain.AnalysisOptions{K: 2, Seed: 7})
	require.NoError(t, err)

	records, err := store.ListAll(context.Background())
	require.NoError(t, err)
	for _, rec := range records {
		assert.Empty(t, rec.StringField(domain.FieldClusterID))
	}
}

func TestAnomalyRanksOutlierFirst(t *testing.T) {
	store := twoGroupStore(t)
	p := &plugins.Anomaly{}

	outcome, err := p.Run(context.Background(), plugins.Deps{Store: store}, domain.AnalysisOptions{K: 2})
	require.NoError(t, err)
	require.Len(t, outcome.Outliers, 2)

	// The orthogonal point is least similar to everything else.
	assert.Equal(t, "odd", outcome.Outliers[0].Record.ChunkID)
	assert.LessOrEqual(t, outcome.Outliers[0].Score, outcome.Outliers[1].Score)
}

func TestInterpretDeduplicatesSummaries(t *testing.T) {
	store := vectormem.New()
	require.NoError(t, store.Upsert(context.Background(), []domain.VectorRecord{
		{ChunkID: "c1", FileID: "f1", Vector: []float32{1, 0}, Text: "x", Metadata: map[string]any{domain.FieldHolisticSummary: "Summary one."}},
		{ChunkID: "c2", FileID: "f1", Vector: []float32{1, 0}, Text: "y", Metadata: map[string]any{domain.FieldHolisticSummary: "Summary one."}},
		{ChunkID: "c3", FileID: "f2", Vector: []float32{0, 1}, Text: "z", Metadata: map[string]any{domain.FieldHolisticSummary: "Summary two."}},
	}))
	llm := &scriptLLM{reply: "The corpus is about two things."}
	p := &plugins.Interpret{}

	outcome, err := p.Run(context.Background(), plugins.Deps{Store: store, LLM: llm}, domain.AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, "The corpus is about two things.", outcome.Text)
	assert.Equal(t, 1, llm.calls)
}

func TestLLMTaskRequiresQuery(t *testing.T) {
	reg := plugins.DefaultRegistry()
	p, err := reg.Get("summarize")
	require.NoError(t, err)

	_, err = p.Run(context.Background(), plugins.Deps{}, domain.AnalysisOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCategorizeAndEntityRequireOptions(t *testing.T) {
	reg := plugins.DefaultRegistry()
	deps := plugins.Deps{
		LLM:       &scriptLLM{reply: "ok"},
		Retriever: &stubRetriever{results: []domain.QueryResult{{Record: domain.VectorRecord{Text: "t"}}}},
	}

	for _, name := range []string{"categorize", "entity"} {
		p, err := reg.Get(name)
		require.NoError(t, err)

		_, err = p.Run(context.Background(), deps, domain.AnalysisOptions{Query: "q"})
		assert.ErrorIs(t, err, domain.ErrConfiguration, name)

		outcome, err := p.Run(context.Background(), deps, domain.AnalysisOptions{Query: "q", Options: "a,b"})
		require.NoError(t, err, name)
		assert.Equal(t, "ok", outcome.Text)
	}
}

func TestSummarizeUsesRetrievedChunks(t *testing.T) {
	retriever := &stubRetriever{results: []domain.QueryResult{
		{Record: domain.VectorRecord{Text: "first passage", Metadata: map[string]any{domain.FieldFilename: "a.txt"}}, Score: 0.9},
		{Record: domain.VectorRecord{Text: "second passage", Metadata: map[string]any{domain.FieldFilename: "b.txt"}}, Score: 0.8},
	}}
	llm := &scriptLLM{reply: "A grounded summary."}
	reg := plugins.DefaultRegistry()
	p, err := reg.Get("summarize")
	require.NoError(t, err)

	outcome, err := p.Run(context.Background(), plugins.Deps{LLM: llm, Retriever: retriever}, domain.AnalysisOptions{Query: "passages", K: 2})
	require.NoError(t, err)
	assert.Equal(t, "A grounded summary.", outcome.Text)
	assert.Equal(t, 1, llm.calls)
}
