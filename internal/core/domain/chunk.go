package domain

// Metadata field names attached to chunks by the pipeline and by
// analysis plugins. Plugin-persisted fields become ordinary metadata and
// participate in embedding composition when allow-listed.
const (
	// FieldThemes holds 2-4 short theme labels, ordered by relevance.
	FieldThemes = "themes"

	// FieldHypotheticalQuestion holds one question the chunk could answer.
	FieldHypotheticalQuestion = "hypothetical_question"

	// FieldHolisticSummary holds the document-level summary broadcast to
	// every chunk of the owning document.
	FieldHolisticSummary = "holistic_summary"

	// FieldSourceQuestion holds the interview question for a stratified
	// answer span.
	FieldSourceQuestion = "source_question"

	// FieldAxialTheme holds the cluster label written back by the
	// clustering plugin with --save.
	FieldAxialTheme = "axial_theme"

	// FieldClusterID holds the cluster identifier written back by the
	// clustering plugin with --save.
	FieldClusterID = "cluster_id"

	// FieldFilename holds the originating file name, kept for display.
	FieldFilename = "original_filename"

	// FieldDocType holds the originating document type.
	FieldDocType = "doc_type"
)

// Chunk is a bounded text span derived from one version of a corpus
// file. It is the atomic unit stored, embedded and retrieved.
type Chunk struct {
	// ID is the unique chunk identifier.
	ID string

	// FileID links to the owning CorpusFile.
	FileID string

	// Version is the file version this chunk was derived from. Chunks
	// of an older version are fully superseded on re-ingestion.
	Version int

	// Position is the ordinal position within the document.
	Position int

	// Text is the raw text span.
	Text string

	// Metadata maps field name to value. Fields are added incrementally
	// by pipeline stages and later by analysis plugins.
	Metadata map[string]any
}

// Clone returns a deep copy of the chunk's metadata map on a shallow
// copy of the chunk. Stages mutate metadata; callers that hold chunks
// across stage boundaries copy first.
func (c Chunk) Clone() Chunk {
	meta := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		meta[k] = v
	}
	c.Metadata = meta
	return c
}

// StringField returns a metadata field as a string, or "" when absent
// or not a string.
func (c Chunk) StringField(name string) string {
	v, ok := c.Metadata[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// StringsField returns a metadata field as a string slice. JSON
// round-trips store lists as []any, so both forms are accepted.
func (c Chunk) StringsField(name string) []string {
	switch v := c.Metadata[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
