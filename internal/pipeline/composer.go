// Package pipeline implements the ingestion enrichment pipeline: the
// per-document stage machine and the embedding composer.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// Compose builds the literal text submitted for vector embedding from
// the chunk text plus every metadata field present on the chunk and
// present in the allow-list, in a fixed deterministic field order.
//
// This is the only text ever sent to the embedding model. Fields
// outside the allow-list are stored but never embedded, which keeps the
// embedded text length bounded regardless of corpus growth. Changing
// the allow-list invalidates all existing embeddings and requires
// re-ingestion.
func Compose(chunk domain.Chunk, allowList []string) string {
	var b strings.Builder
	b.WriteString(chunk.Text)

	fields := make([]string, 0, len(allowList))
	for _, f := range allowList {
		if _, ok := chunk.Metadata[f]; ok {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)

	for _, f := range fields {
		b.WriteString("\n")
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(fieldValue(chunk.Metadata[f]))
	}

	return b.String()
}

// fieldValue renders a metadata value deterministically. Lists keep
// their stored order (order carries relevance for themes).
func fieldValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, e := range val {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
