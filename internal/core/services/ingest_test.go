package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/memory"
	vectormem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/pipeline"
	"github.com/corpora-labs/corpora-cli/internal/pipeline/splitter"
)

// degradedLLM always fails, so every enrichment stage degrades and the
// pipeline still completes. Ingestion tests only care about chunk flow.
type degradedLLM struct{}

func (degradedLLM) Generate(context.Context, domain.ModelRole, string, driven.GenerateOptions) (string, error) {
	return "", errors.New("unavailable")
}

func (degradedLLM) Chat(context.Context, domain.ModelRole, []driven.ChatMessage, driven.GenerateOptions) (string, error) {
	return "", errors.New("unavailable")
}

func (degradedLLM) Ping(context.Context) error { return nil }
func (degradedLLM) Close() error               { return nil }

// stubEmbedder embeds text by length so equal texts get equal vectors.
type stubEmbedder struct {
	calls int
	fail  bool
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedder down")
	}
	e.calls++
	return []float32{float32(len(text)), 1, 0}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int          { return 3 }
func (e *stubEmbedder) ModelName() string        { return "stub" }
func (e *stubEmbedder) Ping(context.Context) error { return nil }
func (e *stubEmbedder) Close() error             { return nil }

type ingestEnv struct {
	svc      *IngestService
	manifest *storagemem.ManifestStore
	store    *vectormem.Store
	files    map[string]string
}

func newIngestEnv(t *testing.T) *ingestEnv {
	t.Helper()
	env := &ingestEnv{
		manifest: storagemem.NewManifestStore(),
		store:    vectormem.New(),
		files:    make(map[string]string),
	}
	cfg := domain.Config{
		Ingest:      domain.IngestConfig{ChunkSize: 50, ChunkOverlap: 10, Workers: 2},
		EmbedFields: []string{domain.FieldThemes, domain.FieldHypotheticalQuestion},
	}
	pipe := pipeline.New(degradedLLM{}, splitter.New(
		splitter.WithChunkSize(cfg.Ingest.ChunkSize),
		splitter.WithOverlap(cfg.Ingest.ChunkOverlap),
	))
	env.svc = NewIngestService(env.manifest, env.store, &stubEmbedder{}, pipe, cfg)
	env.svc.readFile = func(path string) (string, error) {
		text, ok := env.files[path]
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrIOFailure, path)
		}
		return text, nil
	}
	return env
}

func (env *ingestEnv) ingest(t *testing.T, path string) driving.FileOutcome {
	t.Helper()
	outcomes, err := env.svc.IngestBatch(context.Background(), []driving.IngestRequest{{Path: path}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	return outcomes[0]
}

func TestIngestNewFile(t *testing.T) {
	env := newIngestEnv(t)
	env.files["notes.txt"] = "The committee discussed funding allocation across all regional programs."

	outcome := env.ingest(t, "notes.txt")

	require.NoError(t, outcome.Err)
	assert.Equal(t, driving.StatusIngested, outcome.Status)
	assert.Equal(t, 1, outcome.Version)
	assert.NotEmpty(t, outcome.FileID)
	assert.Greater(t, outcome.ChunkCount, 0)

	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, outcome.ChunkCount, count)

	entry, err := env.manifest.Get(context.Background(), outcome.FileID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Version)
	assert.Equal(t, outcome.ChunkCount, entry.ChunkCount)
}

func TestIngestUnchangedIsNoOp(t *testing.T) {
	env := newIngestEnv(t)
	env.files["notes.txt"] = "Short note about quarterly planning."

	first := env.ingest(t, "notes.txt")
	require.NoError(t, first.Err)

	before, err := env.store.ListAll(context.Background())
	require.NoError(t, err)

	second := env.ingest(t, "notes.txt")
	require.NoError(t, second.Err)
	assert.Equal(t, driving.StatusUnchanged, second.Status)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, first.ChunkCount, second.ChunkCount)

	after, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(before), len(after))
	for i := range before {
		// Chunk IDs survive an unchanged re-ingest untouched.
		assert.Equal(t, before[i].ChunkID, after[i].ChunkID)
	}
}

func TestIngestChangedContentBumpsVersionAndReplaces(t *testing.T) {
	env := newIngestEnv(t)
	env.files["notes.txt"] = "Original content for the first recorded version of this file."

	first := env.ingest(t, "notes.txt")
	require.NoError(t, first.Err)
	before, err := env.store.ListAll(context.Background())
	require.NoError(t, err)

	env.files["notes.txt"] = "Entirely different content after an edit, long enough to chunk."
	second := env.ingest(t, "notes.txt")
	require.NoError(t, second.Err)

	assert.Equal(t, driving.StatusUpdated, second.Status)
	assert.Equal(t, first.FileID, second.FileID)
	assert.Equal(t, first.Version+1, second.Version)

	after, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	oldIDs := make(map[string]bool)
	for _, r := range before {
		oldIDs[r.ChunkID] = true
	}
	for _, r := range after {
		// Full replacement: no chunk of the previous version survives.
		assert.False(t, oldIDs[r.ChunkID])
		assert.Equal(t, second.FileID, r.FileID)
	}
}

func TestIngestMissingFileIsIsolated(t *testing.T) {
	env := newIngestEnv(t)
	env.files["good.txt"] = "Readable file contents for the batch."

	outcomes, err := env.svc.IngestBatch(context.Background(), []driving.IngestRequest{
		{Path: "good.txt"},
		{Path: "missing.txt"},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, driving.StatusIngested, outcomes[0].Status)
	assert.Equal(t, driving.StatusFailed, outcomes[1].Status)
	assert.ErrorIs(t, outcomes[1].Err, domain.ErrIOFailure)
}

func TestIngestRejectsUnknownDocType(t *testing.T) {
	env := newIngestEnv(t)
	env.files["notes.txt"] = "content"

	_, err := env.svc.IngestBatch(context.Background(), []driving.IngestRequest{
		{Path: "notes.txt", DocType: domain.DocType("poem")},
	})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestIngestEmbedderFailureFailsFile(t *testing.T) {
	env := newIngestEnv(t)
	env.files["notes.txt"] = "content that will not be embedded"

	embedder := &stubEmbedder{fail: true}
	pipe := pipeline.New(degradedLLM{}, splitter.New())
	env.svc = NewIngestService(env.manifest, env.store, embedder, pipe, domain.Config{})
	env.svc.readFile = func(string) (string, error) { return env.files["notes.txt"], nil }

	outcome := env.ingest(t, "notes.txt")
	assert.Equal(t, driving.StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, domain.ErrServiceUnavailable)

	// Nothing was stored and the manifest records nothing: the next
	// attempt starts clean.
	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = env.manifest.GetByPath(context.Background(), "notes.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReingestAllRegenerates(t *testing.T) {
	env := newIngestEnv(t)
	env.files["a.txt"] = "First corpus file with some content."
	env.files["b.txt"] = "Second corpus file with different content."
	env.ingest(t, "a.txt")
	env.ingest(t, "b.txt")

	before, err := env.store.ListAll(context.Background())
	require.NoError(t, err)

	outcomes, err := env.svc.ReingestAll(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		assert.NotEqual(t, driving.StatusUnchanged, o.Status)
	}

	after, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}
