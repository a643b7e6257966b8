// Package memory provides an in-memory vector record store using
// brute-force cosine similarity. It is the test double for the external
// vector engines and preserves ingestion order for stable tie-breaks.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/vectormath"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is an in-memory implementation of driven.VectorStore.
type Store struct {
	mu      sync.RWMutex
	records []domain.VectorRecord // ingestion order
	index   map[string]int        // chunk ID -> slice position
}

// New creates an empty in-memory vector store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

// Upsert stores records keyed by chunk ID, preserving the original
// slot for replaced records.
func (s *Store) Upsert(_ context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if i, ok := s.index[r.ChunkID]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.ChunkID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

// DeleteByFileID removes every record belonging to a file ID.
func (s *Store) DeleteByFileID(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.FileID != fileID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.ChunkID] = i
	}
	return nil
}

// QueryTopK returns the k nearest records by cosine similarity.
func (s *Store) QueryTopK(ctx context.Context, vector []float32, k int) ([]domain.QueryResult, error) {
	results, err := s.QueryThreshold(ctx, vector, -1)
	if err != nil {
		return nil, err
	}
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// QueryThreshold returns all records scoring at least minScore, ordered
// by descending score with ingestion-order tie break.
func (s *Store) QueryThreshold(_ context.Context, vector []float32, minScore float64) ([]domain.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		pos    int
		result domain.QueryResult
	}
	hits := make([]scored, 0, len(s.records))
	for i, r := range s.records {
		score := vectormath.Cosine(vector, r.Vector)
		if score >= minScore {
			hits = append(hits, scored{pos: i, result: domain.QueryResult{Record: r, Score: score}})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].result.Score != hits[j].result.Score {
			return hits[i].result.Score > hits[j].result.Score
		}
		return hits[i].pos < hits[j].pos
	})

	results := make([]domain.QueryResult, len(hits))
	for i, h := range hits {
		results[i] = h.result
	}
	return results, nil
}

// QueryExact returns records whose text contains the literal substring.
func (s *Store) QueryExact(_ context.Context, substring string) ([]domain.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.VectorRecord
	for _, r := range s.records {
		if strings.Contains(r.Text, substring) || strings.Contains(r.EmbedText, substring) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListAll returns a snapshot of every record in ingestion order.
func (s *Store) ListAll(_ context.Context) ([]domain.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VectorRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// UpdateMetadata overwrites the named metadata fields on the given
// chunks, leaving other fields untouched.
func (s *Store) UpdateMetadata(_ context.Context, chunkIDs []string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range chunkIDs {
		i, ok := s.index[id]
		if !ok {
			return domain.ErrNotFound
		}
		if s.records[i].Metadata == nil {
			s.records[i].Metadata = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			s.records[i].Metadata[k] = v
		}
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}
