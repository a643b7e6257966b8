package services

import (
	"context"
	"fmt"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
	"github.com/corpora-labs/corpora-cli/internal/logger"
	"github.com/corpora-labs/corpora-cli/internal/plugins"
)

var _ driving.AnalysisRunner = (*AnalysisService)(nil)

// AnalysisService dispatches analysis plugins by name, supplying each
// run with the shared store, language service and retrieval
// capabilities.
type AnalysisService struct {
	registry *plugins.Registry
	deps     plugins.Deps
}

// NewAnalysisService creates the plugin dispatcher.
func NewAnalysisService(registry *plugins.Registry, deps plugins.Deps) *AnalysisService {
	return &AnalysisService{registry: registry, deps: deps}
}

// Run executes the named plugin. Unknown names fail before any
// retrieval occurs.
func (s *AnalysisService) Run(ctx context.Context, name string, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error) {
	plugin, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	logger.Info("Running analysis %q", name)
	outcome, err := plugin.Run(ctx, s.deps, opts)
	if err != nil {
		return nil, fmt.Errorf("analysis %q: %w", name, err)
	}
	return outcome, nil
}

// Describe lists registered plugins as name -> description.
func (s *AnalysisService) Describe() map[string]string {
	return s.registry.Describe()
}
