// Package splitter provides fixed-size text chunking with overlap.
package splitter

import (
	"github.com/google/uuid"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Splitter divides document text into size-bounded spans. Given
// identical input and configuration the produced spans and ordinals are
// identical, which keeps re-ingestion reproducible.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave forward progress per step
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split divides text into ordered chunks for one version of a corpus
// file. The spans cover the full text; trailing content is never
// dropped. Empty text produces no chunks.
func (s *Splitter) Split(file domain.CorpusFile, text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	contentLen := len(text)
	estimated := (contentLen / (s.chunkSize - s.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	position := 0
	start := 0

	for start < contentLen {
		end := start + s.chunkSize
		if end > contentLen {
			end = contentLen
		}

		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			FileID:   file.ID,
			Version:  file.Version,
			Position: position,
			Text:     text[start:end],
			Metadata: map[string]any{
				domain.FieldFilename: file.Filename,
				domain.FieldDocType:  string(file.DocType),
			},
		})
		position++

		if end == contentLen {
			break
		}
		start += s.chunkSize - s.overlap
	}

	return chunks
}
