package domain

import "time"

// DocType classifies how a source file is split and enriched.
type DocType string

// Recognised document types.
const (
	// DocTypeDocument is generic prose, split by the fixed-size splitter.
	DocTypeDocument DocType = "document"

	// DocTypeInterview is interview-like material. Splitting is delegated
	// to the Stratify stage, which identifies question/answer spans.
	DocTypeInterview DocType = "interview"

	// DocTypeNotes is free-form note material, split like documents.
	DocTypeNotes DocType = "notes"
)

// ParseDocType validates a document type string against the recognised set.
func ParseDocType(s string) (DocType, error) {
	switch DocType(s) {
	case DocTypeDocument, DocTypeInterview, DocTypeNotes:
		return DocType(s), nil
	}
	return "", ErrUnknownDocType
}

// CorpusFile represents one source file under corpus management.
// The ID is assigned once per distinct path and never changes; content
// changes increment Version instead.
type CorpusFile struct {
	// ID is the stable unique identifier for the file.
	ID string

	// Path is the original file path the content was read from.
	Path string

	// Filename is the base name, kept for display.
	Filename string

	// ContentHash is the SHA-256 hex digest of the file content.
	ContentHash string

	// DocType classifies the file for splitting and enrichment.
	DocType DocType

	// Version counts distinct content states seen for this path,
	// starting at 1.
	Version int
}

// ManifestEntry is the persisted record of a file's identity and version.
// The manifest is the single source of truth for change detection; the
// vector store is a derived index rebuildable from source plus manifest.
type ManifestEntry struct {
	// FileID is the stable corpus file ID.
	FileID string

	// ContentHash is the SHA-256 hex digest at last successful ingestion.
	ContentHash string

	// Version is the version at last successful ingestion.
	Version int

	// Path is the source file path.
	Path string

	// DocType is the declared document type.
	DocType DocType

	// ChunkCount is the number of chunks stored for this version.
	ChunkCount int

	// IngestedAt is when this version was last ingested.
	IngestedAt time.Time
}
