package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
	"github.com/corpora-labs/corpora-cli/internal/pipeline"
	"github.com/corpora-labs/corpora-cli/internal/reader"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// DefaultWorkers bounds concurrent document enrichment per batch.
const DefaultWorkers = 4

// readFileFunc loads a source file as cleaned text. Replaceable in tests.
type readFileFunc func(path string) (string, error)

// IngestService coordinates the ingestion enrichment pipeline for file
// batches: versioning, splitting, enrichment, composition, embedding
// and versioned replacement in the vector store.
type IngestService struct {
	tracker  *VersionTracker
	manifest driven.ManifestStore
	store    driven.VectorStore
	embedder driven.EmbeddingService
	pipe     *pipeline.Pipeline
	cfg      domain.Config
	readFile readFileFunc

	// fileLocks serialises writes per file ID: two versions of the same
	// file must never race to update the store.
	mu        sync.Mutex
	fileLocks map[string]*sync.Mutex
}

// NewIngestService creates the ingestion orchestrator.
func NewIngestService(
	manifest driven.ManifestStore,
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	pipe *pipeline.Pipeline,
	cfg domain.Config,
) *IngestService {
	return &IngestService{
		tracker:   NewVersionTracker(manifest),
		manifest:  manifest,
		store:     store,
		embedder:  embedder,
		pipe:      pipe,
		cfg:       cfg,
		readFile:  reader.Read,
		fileLocks: make(map[string]*sync.Mutex),
	}
}

// IngestBatch processes a batch of files. Documents are enriched
// concurrently up to the configured worker bound; per-file failures are
// isolated and reported in the per-file outcomes.
func (s *IngestService) IngestBatch(ctx context.Context, reqs []driving.IngestRequest) ([]driving.FileOutcome, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	for _, req := range reqs {
		if req.DocType != "" {
			if _, err := domain.ParseDocType(string(req.DocType)); err != nil {
				// Fail fast before any mutation.
				return nil, fmt.Errorf("%w: %q for %s", domain.ErrConfiguration, req.DocType, req.Path)
			}
		}
	}

	workers := s.cfg.Ingest.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	outcomes := make([]driving.FileOutcome, len(reqs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req driving.IngestRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = s.ingestOne(ctx, req, false)
		}(i, req)
	}
	wg.Wait()

	return outcomes, nil
}

// ReingestAll re-runs the pipeline for every manifest entry, forcing
// chunk and embedding regeneration. Required after the embeddable
// field allow-list changes.
func (s *IngestService) ReingestAll(ctx context.Context) ([]driving.FileOutcome, error) {
	entries, err := s.manifest.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list manifest: %w", err)
	}

	outcomes := make([]driving.FileOutcome, 0, len(entries))
	for _, e := range entries {
		req := driving.IngestRequest{Path: e.Path, DocType: e.DocType}
		outcomes = append(outcomes, s.ingestOne(ctx, req, true))
	}
	return outcomes, nil
}

// ingestOne runs the full pipeline for a single file. All failures are
// captured in the outcome; the manifest is only written after the new
// chunks are safely stored.
func (s *IngestService) ingestOne(ctx context.Context, req driving.IngestRequest, force bool) driving.FileOutcome {
	outcome := driving.FileOutcome{Path: req.Path, Status: driving.StatusFailed}

	text, err := s.readFile(req.Path)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	reg, err := s.tracker.Register(ctx, req.Path, []byte(text), req.DocType)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	file := reg.File
	outcome.FileID = file.ID
	outcome.Version = file.Version

	if !reg.IsNew && !reg.VersionChanged && !force {
		// Idempotent no-op: manifest, chunk count and chunk IDs are
		// untouched.
		entry, err := s.manifest.Get(ctx, file.ID)
		if err == nil {
			outcome.ChunkCount = entry.ChunkCount
		}
		outcome.Status = driving.StatusUnchanged
		return outcome
	}

	logger.Info("Ingesting %s (version %d)", file.Filename, file.Version)

	result, err := s.pipe.Run(ctx, file, text)
	if err != nil {
		outcome.Err = fmt.Errorf("enrich %s: %w", req.Path, err)
		return outcome
	}
	outcome.Degraded = result.Degraded

	records, err := s.composeAndEmbed(ctx, result.Chunks)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	if err := s.replaceRecords(ctx, reg, records); err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.ChunkCount = len(records)
	switch {
	case reg.IsNew:
		outcome.Status = driving.StatusIngested
	default:
		outcome.Status = driving.StatusUpdated
	}
	return outcome
}

// composeAndEmbed builds embedding texts from the allow-list and embeds
// them as one batch.
func (s *IngestService) composeAndEmbed(ctx context.Context, chunks []domain.Chunk) ([]domain.VectorRecord, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = pipeline.Compose(c, s.cfg.EmbedFields)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", domain.ErrServiceUnavailable, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: embed returned %d vectors for %d texts",
			domain.ErrMalformedResponse, len(vectors), len(texts))
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{
			ChunkID:   c.ID,
			FileID:    c.FileID,
			Vector:    vectors[i],
			EmbedText: texts[i],
			Text:      c.Text,
			Position:  c.Position,
			Metadata:  c.Metadata,
		}
	}
	return records, nil
}

// replaceRecords applies the versioned replacement: old chunks for the
// file ID are deleted only after the new chunks are fully computed,
// then delete and insert run back-to-back under the per-file lock so no
// mixed old/new state is left visible longer than necessary.
func (s *IngestService) replaceRecords(ctx context.Context, reg *Registration, records []domain.VectorRecord) error {
	lock := s.lockFor(reg.File.ID)
	lock.Lock()
	defer lock.Unlock()

	// Reject stale writes: another worker may have advanced the file.
	current, err := s.manifest.Get(ctx, reg.File.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check manifest: %w", err)
	}
	if current != nil && current.Version > reg.File.Version {
		return fmt.Errorf("%w: file %s already at version %d",
			domain.ErrVersionConflict, reg.File.ID, current.Version)
	}

	if err := s.store.DeleteByFileID(ctx, reg.File.ID); err != nil {
		return fmt.Errorf("delete previous version: %w", err)
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("store records: %w", err)
	}

	entry := domain.ManifestEntry{
		FileID:      reg.File.ID,
		ContentHash: reg.File.ContentHash,
		Version:     reg.File.Version,
		Path:        reg.File.Path,
		DocType:     reg.File.DocType,
		ChunkCount:  len(records),
		IngestedAt:  time.Now().UTC(),
	}
	if err := s.manifest.Save(ctx, entry); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

func (s *IngestService) lockFor(fileID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.fileLocks[fileID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.fileLocks[fileID] = l
	return l
}
