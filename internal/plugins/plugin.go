// Package plugins implements the analysis framework: a registry of
// named plugins that consume the stored corpus through the retrieval
// service and the vector store, reason over it with the language
// service, and return ephemeral outcomes. Plugins that support
// write-back persist their results into chunk metadata explicitly.
package plugins

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
)

// Deps are the capabilities handed to every plugin run. Plugins operate
// on already-stored data only; none of them trigger ingestion.
type Deps struct {
	Store     driven.VectorStore
	LLM       driven.LLMService
	Retriever driving.RetrievalService
	Config    domain.Config
}

// Plugin is one registered analysis.
type Plugin interface {
	// Name is the registry key, for example "clustering".
	Name() string

	// Describe is a one-line summary for listings.
	Describe() string

	// Run executes the analysis. Results are ephemeral unless the
	// plugin persists them when opts.Save is set.
	Run(ctx context.Context, deps Deps, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error)
}
