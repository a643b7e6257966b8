package pipeline

import (
	"context"
	"sort"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
	"github.com/corpora-labs/corpora-cli/internal/pipeline/splitter"
	"github.com/corpora-labs/corpora-cli/internal/pipeline/stages"
)

// Result is the output of running the enrichment pipeline for one
// document version.
type Result struct {
	// Chunks carry the stage-attached metadata, ready for composition.
	Chunks []domain.Chunk

	// Degraded lists metadata fields omitted on at least one chunk
	// because a stage response stayed malformed after repair.
	Degraded []string
}

// Pipeline runs the per-document enrichment state machine: Stratify
// (interview types only), Structure, Enrich, then Synthesize. Stage
// failures are chunk or document scoped; a document always yields
// chunks, possibly with fields omitted.
type Pipeline struct {
	splitter   *splitter.Splitter
	stratify   *stages.Stratify
	structure  *stages.Structure
	enrich     *stages.Enrich
	synthesize *stages.Synthesize
}

// New creates a pipeline using the given language service and splitter.
func New(llm driven.LLMService, split *splitter.Splitter) *Pipeline {
	return &Pipeline{
		splitter:   split,
		stratify:   stages.NewStratify(llm),
		structure:  stages.NewStructure(llm),
		enrich:     stages.NewEnrich(llm),
		synthesize: stages.NewSynthesize(llm),
	}
}

// Run executes all stages for one document. The returned chunks are
// ordered by position and fully populated up to whatever degree the
// language service allowed.
func (p *Pipeline) Run(ctx context.Context, file domain.CorpusFile, text string) (*Result, error) {
	res := &Result{}
	degraded := map[string]bool{}

	// Stage 0: Stratify, or generic splitting.
	if file.DocType == domain.DocTypeInterview {
		chunks, ok := p.stratify.Split(ctx, file, text)
		if ok {
			res.Chunks = chunks
		} else {
			logger.Warn("Stratify yielded no structure for %s, falling back to generic chunking", file.Filename)
			degraded[domain.FieldSourceQuestion] = true
			res.Chunks = p.splitter.Split(file, text)
		}
	} else {
		res.Chunks = p.splitter.Split(file, text)
	}

	if len(res.Chunks) == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 1: Structure — theme labels per chunk.
	for i := range res.Chunks {
		themes, err := p.structure.Themes(ctx, res.Chunks[i].Text)
		if err != nil {
			logger.Warn("Structure degraded for chunk %d of %s: %v", i, file.Filename, err)
			degraded[domain.FieldThemes] = true
			continue
		}
		res.Chunks[i].Metadata[domain.FieldThemes] = themes
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Enrich — hypothetical question per chunk.
	for i := range res.Chunks {
		question, err := p.enrich.Question(ctx, res.Chunks[i].Text)
		if err != nil {
			logger.Warn("Enrich degraded for chunk %d of %s: %v", i, file.Filename, err)
			degraded[domain.FieldHypotheticalQuestion] = true
			continue
		}
		res.Chunks[i].Metadata[domain.FieldHypotheticalQuestion] = question
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: Synthesize — one summary broadcast to every chunk.
	texts := make([]string, len(res.Chunks))
	for i := range res.Chunks {
		texts[i] = res.Chunks[i].Text
	}
	summary, err := p.synthesize.Summary(ctx, texts)
	if err != nil {
		logger.Warn("Synthesize degraded for %s: %v", file.Filename, err)
		degraded[domain.FieldHolisticSummary] = true
	} else {
		for i := range res.Chunks {
			res.Chunks[i].Metadata[domain.FieldHolisticSummary] = summary
		}
	}

	for field := range degraded {
		res.Degraded = append(res.Degraded, field)
	}
	sort.Strings(res.Degraded)
	return res, nil
}
