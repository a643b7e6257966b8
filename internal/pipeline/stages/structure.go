package stages

import (
	"context"
	"fmt"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

const structureSystemPrompt = `You are a qualitative researcher labelling text.
Read the text chunk and produce 2-4 short theme labels (2-4 words each) that
capture its topics, ordered from most to least relevant.
Respond ONLY with a valid JSON list of strings.
Example: ["fear of failure", "parental expectations", "career anxiety"]`

const repairPrompt = `Your previous reply could not be parsed. Reply again with
ONLY the requested JSON, no prose, no code fences.`

// Structure attaches 2-4 theme labels to every chunk.
type Structure struct {
	llm driven.LLMService
}

// NewStructure creates the Structure stage.
func NewStructure(llm driven.LLMService) *Structure {
	return &Structure{llm: llm}
}

// Themes asks the language service for theme labels for one chunk. The
// returned order carries relevance as returned by the model.
func (s *Structure) Themes(ctx context.Context, text string) ([]string, error) {
	messages := []driven.ChatMessage{
		{Role: "system", Content: structureSystemPrompt},
		{Role: "user", Content: "Text to label:\n---\n" + text},
	}

	var themes []string
	err := chatValidated(ctx, s.llm, domain.RoleStructure, messages, themesSchema, &themes)
	if err != nil {
		return nil, err
	}
	if len(themes) > 4 {
		themes = themes[:4]
	}
	return themes, nil
}

// chatValidated performs the shared call/validate/repair-once loop used
// by stages that expect structured output.
func chatValidated(
	ctx context.Context,
	llm driven.LLMService,
	role domain.ModelRole,
	messages []driven.ChatMessage,
	schema string,
	out any,
) error {
	response, err := llm.Chat(ctx, role, messages, driven.GenerateOptions{Temperature: 0.2})
	if err != nil {
		return fmt.Errorf("stage call: %w", err)
	}

	if err := decodeValidated(schema, response, out); err == nil {
		return nil
	}

	// One repair attempt with the malformed output echoed back.
	repair := append(messages,
		driven.ChatMessage{Role: "assistant", Content: response},
		driven.ChatMessage{Role: "user", Content: repairPrompt},
	)
	response, err = llm.Chat(ctx, role, repair, driven.GenerateOptions{Temperature: 0})
	if err != nil {
		return fmt.Errorf("stage repair call: %w", err)
	}
	return decodeValidated(schema, response, out)
}
