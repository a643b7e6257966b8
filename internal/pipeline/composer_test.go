package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

func TestCompose_TextOnly(t *testing.T) {
	chunk := domain.Chunk{Text: "plain text", Metadata: map[string]any{}}

	got := Compose(chunk, []string{domain.FieldThemes})

	assert.Equal(t, "plain text", got)
}

func TestCompose_AllowListedFields(t *testing.T) {
	chunk := domain.Chunk{
		Text: "the answer",
		Metadata: map[string]any{
			domain.FieldThemes:               []string{"risk", "safety"},
			domain.FieldHypotheticalQuestion: "what is the answer?",
			domain.FieldHolisticSummary:      "a very long summary",
		},
	}

	got := Compose(chunk, []string{domain.FieldThemes, domain.FieldHypotheticalQuestion})

	assert.Contains(t, got, "themes: risk, safety")
	assert.Contains(t, got, "hypothetical_question: what is the answer?")
	// Not allow-listed: stored but never embedded.
	assert.NotContains(t, got, "a very long summary")
}

func TestCompose_Deterministic(t *testing.T) {
	chunk := domain.Chunk{
		Text: "body",
		Metadata: map[string]any{
			domain.FieldThemes:               []string{"b", "a"},
			domain.FieldHypotheticalQuestion: "q?",
			domain.FieldSourceQuestion:       "orig?",
		},
	}
	allow := []string{
		domain.FieldSourceQuestion,
		domain.FieldThemes,
		domain.FieldHypotheticalQuestion,
	}

	first := Compose(chunk, allow)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compose(chunk, allow))
	}

	// Allow-list order must not matter; field order is fixed.
	reordered := Compose(chunk, []string{
		domain.FieldThemes,
		domain.FieldHypotheticalQuestion,
		domain.FieldSourceQuestion,
	})
	assert.Equal(t, first, reordered)
}

func TestCompose_ListFromJSONRoundTrip(t *testing.T) {
	// Metadata loaded from a store arrives as []any.
	chunk := domain.Chunk{
		Text: "body",
		Metadata: map[string]any{
			domain.FieldThemes: []any{"one", "two"},
		},
	}

	got := Compose(chunk, []string{domain.FieldThemes})

	assert.Contains(t, got, "themes: one, two")
}
