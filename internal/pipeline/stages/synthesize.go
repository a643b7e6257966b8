package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

const synthesizeSystemPrompt = `You are a research analyst. Read the full
document below and write a single abstractive summary (one paragraph) that
captures its core content and argument. Respond ONLY with the summary prose.`

// Synthesize produces one document-level abstractive summary per
// document. The pipeline broadcasts the result onto every chunk
// belonging to the document as a derived, denormalised field.
type Synthesize struct {
	llm driven.LLMService
}

// NewSynthesize creates the Synthesize stage.
func NewSynthesize(llm driven.LLMService) *Synthesize {
	return &Synthesize{llm: llm}
}

// Summary asks the language service for a document-level summary of the
// concatenated chunk texts.
func (s *Synthesize) Summary(ctx context.Context, chunkTexts []string) (string, error) {
	messages := []driven.ChatMessage{
		{Role: "system", Content: synthesizeSystemPrompt},
		{Role: "user", Content: "Document:\n---\n" + strings.Join(chunkTexts, "\n\n")},
	}

	response, err := s.llm.Chat(ctx, domain.RoleSynthesize, messages, driven.GenerateOptions{Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("stage call: %w", err)
	}

	summary := strings.TrimSpace(response)
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", domain.ErrMalformedResponse)
	}
	return summary, nil
}
