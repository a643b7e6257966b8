package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/memory"
	vectormem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

func seedCorpus(t *testing.T, manifest *storagemem.ManifestStore, store *vectormem.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, manifest.Save(ctx, domain.ManifestEntry{
		FileID: "f1", Path: "a.txt", Version: 1, ChunkCount: 2,
		DocType: domain.DocTypeDocument, IngestedAt: time.Now(),
	}))
	require.NoError(t, manifest.Save(ctx, domain.ManifestEntry{
		FileID: "f2", Path: "b.txt", Version: 3, ChunkCount: 1,
		DocType: domain.DocTypeNotes, IngestedAt: time.Now(),
	}))
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		{ChunkID: "c1", FileID: "f1", Vector: []float32{1, 0}, Text: "alpha"},
		{ChunkID: "c2", FileID: "f1", Vector: []float32{0, 1}, Text: "beta"},
		{ChunkID: "c3", FileID: "f2", Vector: []float32{1, 1}, Text: "gamma"},
	}))
}

func TestCorpusListAndShow(t *testing.T) {
	manifest := storagemem.NewManifestStore()
	store := vectormem.New()
	seedCorpus(t, manifest, store)
	mgr := NewCorpusManager(manifest, store)
	ctx := context.Background()

	entries, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Path)

	entry, err := mgr.Show(ctx, "f2")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Version)

	_, err = mgr.Show(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusRemove(t *testing.T) {
	manifest := storagemem.NewManifestStore()
	store := vectormem.New()
	seedCorpus(t, manifest, store)
	mgr := NewCorpusManager(manifest, store)
	ctx := context.Background()

	require.NoError(t, mgr.Remove(ctx, "f1"))

	_, err := manifest.Get(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "f2", records[0].FileID)

	assert.ErrorIs(t, mgr.Remove(ctx, "f1"), domain.ErrNotFound)
}

func TestCorpusStatus(t *testing.T) {
	manifest := storagemem.NewManifestStore()
	store := vectormem.New()
	seedCorpus(t, manifest, store)
	mgr := NewCorpusManager(manifest, store)

	status, err := mgr.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, status.Files)
	assert.Equal(t, 3, status.ManifestChunks)
	assert.Equal(t, 3, status.StoredRecords)
}
