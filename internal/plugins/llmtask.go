package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

var _ Plugin = (*LLMTask)(nil)

// DefaultRetrievalK is the retrieved chunk count for retrieve-then-reason
// plugins when the caller does not set one.
const DefaultRetrievalK = 10

// LLMTask is the shared retrieve-then-reason plugin base: retrieve the
// top chunks for the query, then run one task-specific instruction over
// them. The built-in summarize, sentiment, categorize and entity
// plugins are all instances of it.
type LLMTask struct {
	name        string
	description string

	// instruction receives the caller's --options string and returns the
	// task instruction appended after the retrieved passages.
	instruction func(options string) (string, error)
}

func (p *LLMTask) Name() string     { return p.name }
func (p *LLMTask) Describe() string { return p.description }

func (p *LLMTask) Run(ctx context.Context, deps Deps, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error) {
	if opts.Query == "" {
		return nil, fmt.Errorf("%w: %s requires a query", domain.ErrConfiguration, p.name)
	}
	instruction, err := p.instruction(opts.Options)
	if err != nil {
		return nil, err
	}

	k := opts.K
	if k <= 0 {
		k = DefaultRetrievalK
	}
	results, err := deps.Retriever.TopK(ctx, opts.Query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve for %s: %w", p.name, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no records match the query", domain.ErrNotFound)
	}

	var sb strings.Builder
	sb.WriteString("Passages retrieved from a research corpus for the query ")
	fmt.Fprintf(&sb, "%q:\n\n", opts.Query)
	for i, res := range results {
		fmt.Fprintf(&sb, "[%d] (%s) %s\n\n", i+1,
			res.Record.StringField(domain.FieldFilename), res.Record.Text)
	}
	sb.WriteString(instruction)

	text, err := deps.LLM.Generate(ctx, domain.RoleAnalysis, sb.String(), driven.GenerateOptions{Temperature: 0.2})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrLLMUnavailable, p.name, err)
	}

	return &domain.AnalysisOutcome{
		Plugin: p.name,
		Text:   strings.TrimSpace(text),
	}, nil
}

// NewSummarize builds the summarize plugin.
func NewSummarize() *LLMTask {
	return &LLMTask{
		name:        "summarize",
		description: "Summarize the chunks most relevant to a query",
		instruction: func(string) (string, error) {
			return "Write a concise summary of these passages. Ground every statement in the passages; do not invent facts.", nil
		},
	}
}

// NewSentiment builds the sentiment plugin.
func NewSentiment() *LLMTask {
	return &LLMTask{
		name:        "sentiment",
		description: "Assess the sentiment of the chunks most relevant to a query",
		instruction: func(string) (string, error) {
			return "Assess the overall sentiment of these passages (positive, negative, mixed or neutral) and explain the assessment with brief quotes.", nil
		},
	}
}

// NewCategorize builds the categorize plugin. The category list is
// mandatory and comes from --options.
func NewCategorize() *LLMTask {
	return &LLMTask{
		name:        "categorize",
		description: "Assign retrieved chunks to caller-supplied categories",
		instruction: func(options string) (string, error) {
			if strings.TrimSpace(options) == "" {
				return "", fmt.Errorf("%w: categorize requires --options with a comma-separated category list", domain.ErrConfiguration)
			}
			return fmt.Sprintf("Assign each numbered passage to exactly one of these categories: %s. List the passage numbers under each category, then note any passage that fits poorly.", options), nil
		},
	}
}

// NewEntity builds the entity plugin. The entity type list is mandatory
// and comes from --options.
func NewEntity() *LLMTask {
	return &LLMTask{
		name:        "entity",
		description: "Extract caller-supplied entity types from retrieved chunks",
		instruction: func(options string) (string, error) {
			if strings.TrimSpace(options) == "" {
				return "", fmt.Errorf("%w: entity requires --options with a comma-separated entity type list", domain.ErrConfiguration)
			}
			return fmt.Sprintf("Extract all entities of these types from the passages: %s. Group the results by type and cite the passage number for each entity.", options), nil
		},
	}
}
