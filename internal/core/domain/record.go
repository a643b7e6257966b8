package domain

// VectorRecord is the persisted (text, vector, metadata) triple for one
// chunk. EmbedText is derived from chunk text plus allow-listed metadata
// and is regenerated on re-ingestion; it is never authoritative.
type VectorRecord struct {
	// ChunkID is the owning chunk's ID and the record key.
	ChunkID string

	// FileID links to the owning corpus file, for versioned replacement.
	FileID string

	// Vector is the fixed-dimension embedding of EmbedText.
	Vector []float32

	// EmbedText is the literal text that was embedded.
	EmbedText string

	// Text is the raw chunk text.
	Text string

	// Position is the chunk's ordinal position, used for stable
	// tie-breaking in query results.
	Position int

	// Metadata is the chunk's full metadata mapping.
	Metadata map[string]any
}

// StringField returns a metadata field as a string, or "" when absent
// or not a string.
func (r VectorRecord) StringField(name string) string {
	v, ok := r.Metadata[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// StringsField returns a metadata field as a string slice, accepting
// both []string and JSON-decoded []any.
func (r VectorRecord) StringsField(name string) []string {
	switch v := r.Metadata[name].(type) {
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

// QueryResult pairs a stored record with its similarity score.
type QueryResult struct {
	Record VectorRecord
	Score  float64
}
