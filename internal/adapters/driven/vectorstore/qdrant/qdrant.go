// Package qdrant provides a VectorStore backed by a remote Qdrant
// instance over its REST API. It assumes cosine distance and creates
// the collection on first use.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const (
	defaultTimeout = 15 * time.Second

	// scrollPage bounds one scroll request.
	scrollPage = 256

	// thresholdLimit bounds a threshold search; Qdrant has no unbounded
	// search, so this is the practical "all matches" ceiling.
	thresholdLimit = 4096
)

// Store is a minimal REST client to Qdrant.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// New creates a Qdrant-backed vector store and ensures the collection
// exists with the given dimension.
func New(ctx context.Context, cfg domain.VectorConfig, dimension int) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant URL is required", domain.ErrConfiguration)
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "corpora"
	}
	s := &Store{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: defaultTimeout},
	}

	if dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid embedding dimension %d", domain.ErrConfiguration, dimension)
	}
	// Qdrant returns 200 when the collection already exists with the
	// same schema.
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", collection), body, nil); err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return s, nil
}

// point is the Qdrant point wire form.
type point struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score,omitempty"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Upsert stores records keyed by chunk ID.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":      r.ChunkID,
			"vector":  r.Vector,
			"payload": payloadFromRecord(r),
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.pointsPath("?wait=true"), body, nil)
}

// DeleteByFileID removes every record belonging to a file ID.
func (s *Store) DeleteByFileID(ctx context.Context, fileID string) error {
	body := map[string]any{
		"filter": fileFilter(fileID),
	}
	return s.do(ctx, http.MethodPost, s.pointsPath("/delete?wait=true"), body, nil)
}

// QueryTopK returns the k nearest records by cosine similarity.
func (s *Store) QueryTopK(ctx context.Context, vector []float32, k int) ([]domain.QueryResult, error) {
	return s.search(ctx, vector, k, nil)
}

// QueryThreshold returns all records scoring at least minScore.
func (s *Store) QueryThreshold(ctx context.Context, vector []float32, minScore float64) ([]domain.QueryResult, error) {
	return s.search(ctx, vector, thresholdLimit, &minScore)
}

func (s *Store) search(ctx context.Context, vector []float32, limit int, minScore *float64) ([]domain.QueryResult, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if minScore != nil {
		body["score_threshold"] = *minScore
	}

	var resp struct {
		Result []point `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.pointsPath("/search"), body, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.QueryResult, 0, len(resp.Result))
	for _, p := range resp.Result {
		results = append(results, domain.QueryResult{
			Record: recordFromPoint(p),
			Score:  p.Score,
		})
	}
	// Qdrant orders by score but leaves ties unspecified; re-sort so
	// equal scores fall back to document position.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.Position < results[j].Record.Position
	})
	return results, nil
}

// QueryExact returns records whose text contains the literal substring.
// Qdrant substring matching requires a full-text index, so the scan is
// client-side over a scroll.
func (s *Store) QueryExact(ctx context.Context, substring string) ([]domain.VectorRecord, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.VectorRecord
	for _, r := range records {
		if strings.Contains(r.Text, substring) || strings.Contains(r.EmbedText, substring) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListAll returns every record via scroll pagination.
func (s *Store) ListAll(ctx context.Context) ([]domain.VectorRecord, error) {
	var records []domain.VectorRecord
	var offset any
	for {
		body := map[string]any{
			"limit":        scrollPage,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			body["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.pointsPath("/scroll"), body, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			records = append(records, recordFromPoint(p))
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	// A stable ingestion order: file then position. Scroll order is by
	// point ID and carries no meaning.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].FileID != records[j].FileID {
			return records[i].FileID < records[j].FileID
		}
		return records[i].Position < records[j].Position
	})
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.pointsPath("/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// UpdateMetadata merges the named fields into the payload metadata of
// the given chunks.
func (s *Store) UpdateMetadata(ctx context.Context, chunkIDs []string, fields map[string]any) error {
	// Qdrant set-payload replaces whole top-level keys, so the nested
	// metadata map has to be read, merged and written back per point.
	for _, id := range chunkIDs {
		var resp struct {
			Result point `json:"result"`
		}
		if err := s.do(ctx, http.MethodGet, s.pointsPath("/"+id), nil, &resp); err != nil {
			return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, id)
		}
		record := recordFromPoint(resp.Result)
		if record.Metadata == nil {
			record.Metadata = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			record.Metadata[k] = v
		}
		body := map[string]any{
			"payload": map[string]any{"metadata": record.Metadata},
			"points":  []string{id},
		}
		if err := s.do(ctx, http.MethodPost, s.pointsPath("/payload?wait=true"), body, nil); err != nil {
			return fmt.Errorf("updating payload for %s: %w", id, err)
		}
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) pointsPath(suffix string) string {
	return fmt.Sprintf("/collections/%s/points%s", s.collection, suffix)
}

// do issues one JSON request against the Qdrant API.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant %s %s: %s", domain.ErrServiceUnavailable, method, path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding qdrant response: %v", domain.ErrMalformedResponse, err)
		}
	}
	return nil
}

func fileFilter(fileID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "file_id", "match": map[string]any{"value": fileID}},
		},
	}
}

func payloadFromRecord(r domain.VectorRecord) map[string]any {
	return map[string]any{
		"file_id":    r.FileID,
		"position":   r.Position,
		"text":       r.Text,
		"embed_text": r.EmbedText,
		"metadata":   r.Metadata,
	}
}

func recordFromPoint(p point) domain.VectorRecord {
	r := domain.VectorRecord{
		ChunkID: p.ID,
		Vector:  p.Vector,
	}
	if v, ok := p.Payload["file_id"].(string); ok {
		r.FileID = v
	}
	if v, ok := p.Payload["position"].(float64); ok {
		r.Position = int(v)
	}
	if v, ok := p.Payload["text"].(string); ok {
		r.Text = v
	}
	if v, ok := p.Payload["embed_text"].(string); ok {
		r.EmbedText = v
	}
	if v, ok := p.Payload["metadata"].(map[string]any); ok {
		r.Metadata = v
	}
	return r
}
