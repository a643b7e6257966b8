package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

const enrichSystemPrompt = `You are a research assistant. Read the following
text. Generate a single, concise, relevant question that this text could be
the answer to. Respond ONLY with the question.`

// Enrich attaches one hypothetical question to every chunk, widening
// retrieval recall for question-shaped queries.
type Enrich struct {
	llm driven.LLMService
}

// NewEnrich creates the Enrich stage.
func NewEnrich(llm driven.LLMService) *Enrich {
	return &Enrich{llm: llm}
}

// Question asks the language service for one question the chunk text
// could answer.
func (e *Enrich) Question(ctx context.Context, text string) (string, error) {
	messages := []driven.ChatMessage{
		{Role: "system", Content: enrichSystemPrompt},
		{Role: "user", Content: "Text:\n---\n" + text},
	}

	response, err := e.llm.Chat(ctx, domain.RoleEnrich, messages, driven.GenerateOptions{Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("stage call: %w", err)
	}

	question := firstLine(response)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", domain.ErrMalformedResponse)
	}
	return question, nil
}

// firstLine trims a prose answer down to its first non-empty line.
// Models occasionally append commentary after the question.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
