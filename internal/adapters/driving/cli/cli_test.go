package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/memory"
	vectormem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/services"
	"github.com/corpora-labs/corpora-cli/internal/plugins"
)

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (e fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}

func (fixedEmbedder) Dimensions() int            { return 2 }
func (fixedEmbedder) ModelName() string          { return "fixed" }
func (fixedEmbedder) Ping(context.Context) error { return nil }
func (fixedEmbedder) Close() error               { return nil }

// setupTestServices wires in-memory services and returns a cleanup.
func setupTestServices(t *testing.T) func() {
	t.Helper()
	manifest := storagemem.NewManifestStore()
	store := vectormem.New()
	ctx := context.Background()

	require.NoError(t, manifest.Save(ctx, domain.ManifestEntry{
		FileID: "f1", Path: "a.txt", Version: 1, ChunkCount: 1,
		ContentHash: "hash", DocType: domain.DocTypeDocument,
	}))
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		{ChunkID: "c1", FileID: "f1", Vector: []float32{1, 0}, Text: "stored chunk text",
			Metadata: map[string]any{domain.FieldFilename: "a.txt"}},
	}))

	retriever := services.NewRetriever(store, fixedEmbedder{})
	SetServices(Services{
		Corpus:    services.NewCorpusManager(manifest, store),
		Retrieval: retriever,
		Analysis: services.NewAnalysisService(plugins.DefaultRegistry(), plugins.Deps{
			Store:     store,
			Retriever: retriever,
		}),
	})
	return func() { SetServices(Services{}) }
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "corpora version")
}

func TestCorpusListCmd(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "corpus", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "f1")
}

func TestCorpusShowCmd_RequiresArg(t *testing.T) {
	_, err := execute(t, "corpus", "show")
	assert.Error(t, err)
}

func TestQueryTopKCmd(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "query", "topk", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "stored chunk text")
}

func TestQueryExactCmd_NoMatches(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "query", "exact", "zzz-not-there")
	require.NoError(t, err)
	assert.Contains(t, out, "No matches")
}

func TestVectorStatusCmd(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "vector", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Files:")
	assert.Contains(t, out, "1")
}

func TestAnalyzeListCmd(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute(t, "analyze", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "clustering")
	assert.Contains(t, out, "anomaly")
	assert.Contains(t, out, "interpret")
}

func TestAnalyzeRunCmd_UnknownPlugin(t *testing.T) {
	cleanup := setupTestServices(t)
	defer cleanup()

	_, err := execute(t, "analyze", "run", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}

func TestCorpusCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range corpusCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "add")
	assert.Contains(t, names, "list")
	assert.Contains(t, names, "show")
	assert.Contains(t, names, "remove")
	assert.Contains(t, names, "reingest")
	assert.Contains(t, names, "watch")
}
