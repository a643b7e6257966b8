package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

var _ Plugin = (*Interpret)(nil)

// Interpret produces a corpus-level meta-summary. It collects the
// distinct holistic summaries across all stored records, one per source
// document, and asks the language service to interpret the corpus as a
// whole.
type Interpret struct{}

func (p *Interpret) Name() string { return "interpret" }

func (p *Interpret) Describe() string {
	return "Meta-summary of the whole corpus from per-document summaries"
}

func (p *Interpret) Run(ctx context.Context, deps Deps, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error) {
	records, err := deps.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: corpus is empty", domain.ErrNotFound)
	}

	// One summary per document: the synthesize stage broadcasts the same
	// holistic summary to every chunk of a file.
	seen := make(map[string]bool)
	var summaries []string
	for _, rec := range records {
		s := strings.TrimSpace(rec.StringField(domain.FieldHolisticSummary))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		summaries = append(summaries, s)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: no document summaries stored, re-ingest first", domain.ErrNotFound)
	}
	sort.Strings(summaries)

	var sb strings.Builder
	sb.WriteString("These are one-paragraph summaries of every document in a research corpus:\n\n")
	for i, s := range summaries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	sb.WriteString("\nInterpret the corpus as a whole. Identify the main themes that cut across documents, tensions or contradictions between them, and what the collection is fundamentally about. Answer in plain prose.")

	text, err := deps.LLM.Generate(ctx, domain.RoleAnalysis, sb.String(), driven.GenerateOptions{Temperature: 0.2})
	if err != nil {
		return nil, fmt.Errorf("%w: interpret: %v", domain.ErrLLMUnavailable, err)
	}

	return &domain.AnalysisOutcome{
		Plugin: p.Name(),
		Text:   strings.TrimSpace(text),
	}, nil
}
