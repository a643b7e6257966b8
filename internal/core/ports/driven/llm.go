package driven

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// LLMService provides role-routed language model operations for the
// enrichment stages and analysis plugins. Responses are free-form text
// expected to contain a parseable structure per stage contract; callers
// parse defensively and degrade on failure.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI-compatible inference servers
type LLMService interface {
	// Generate produces a text completion from a prompt using the model
	// configured for the given role.
	Generate(ctx context.Context, role domain.ModelRole, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a system+user exchange using the model configured
	// for the given role.
	Chat(ctx context.Context, role domain.ModelRole, messages []ChatMessage, opts GenerateOptions) (string, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}
