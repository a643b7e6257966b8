// Package app wires the adapters to the core services. It is the only
// place that knows about concrete adapter types; everything downstream
// sees ports.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/config/file"
	ollamaembed "github.com/corpora-labs/corpora-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/corpora-labs/corpora-cli/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/corpora-labs/corpora-cli/internal/adapters/driven/llm/ollama"
	manifestmem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/memory"
	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/sqlite"
	vectormem "github.com/corpora-labs/corpora-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/vectorstore/qdrant"
	"github.com/corpora-labs/corpora-cli/internal/adapters/driving/cli"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/core/services"
	"github.com/corpora-labs/corpora-cli/internal/pipeline"
	"github.com/corpora-labs/corpora-cli/internal/pipeline/splitter"
	"github.com/corpora-labs/corpora-cli/internal/plugins"
)

// App holds the assembled application and the resources it must release
// on shutdown.
type App struct {
	cfg      domain.Config
	services cli.Services
	closers  []func() error
}

// New loads configuration from configDir (empty means the default
// location) and assembles all services.
func New(ctx context.Context, configDir string) (*App, error) {
	cfg, err := file.Load(configDir)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}

	embedder, err := a.buildEmbedder(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, embedder.Close)

	manifest, store, err := a.buildStores(ctx, cfg, embedder.Dimensions())
	if err != nil {
		a.Close()
		return nil, err
	}

	llm := ollamallm.NewLLMService(cfg.LLM)
	a.closers = append(a.closers, llm.Close)

	split := splitter.New(
		splitter.WithChunkSize(cfg.Ingest.ChunkSize),
		splitter.WithOverlap(cfg.Ingest.ChunkOverlap),
	)
	pipe := pipeline.New(llm, split)

	retriever := services.NewRetriever(store, embedder)
	analysis := services.NewAnalysisService(plugins.DefaultRegistry(), plugins.Deps{
		Store:     store,
		LLM:       llm,
		Retriever: retriever,
		Config:    cfg,
	})

	a.services = cli.Services{
		Ingestor:  services.NewIngestService(manifest, store, embedder, pipe, cfg),
		Corpus:    services.NewCorpusManager(manifest, store),
		Retrieval: retriever,
		Analysis:  analysis,
		Config:    cfg,
	}
	return a, nil
}

// Services returns the wired driving-side services.
func (a *App) Services() cli.Services {
	return a.services
}

// Close releases adapter resources in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func (a *App) buildEmbedder(cfg domain.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
		return ollamaembed.NewEmbeddingService(cfg.Embedding), nil
	case "openai":
		return openaiembed.NewEmbeddingService(cfg.Embedding, os.Getenv("OPENAI_API_KEY"))
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, cfg.Embedding.Provider)
	}
}

// buildStores selects the vector engine. The manifest always lives in
// SQLite except for the fully in-memory engine, so corpus state survives
// restarts regardless of where the vectors are.
func (a *App) buildStores(ctx context.Context, cfg domain.Config, dimension int) (driven.ManifestStore, driven.VectorStore, error) {
	switch cfg.Vector.Engine {
	case "", "sqlite":
		db, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db.ManifestStore(), db.VectorStore(), nil

	case "qdrant":
		db, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		vs, err := qdrant.New(ctx, cfg.Vector, dimension)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, vs.Close)
		return db.ManifestStore(), vs, nil

	case "memory":
		vs := vectormem.New()
		a.closers = append(a.closers, vs.Close)
		return manifestmem.NewManifestStore(), vs, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown vector engine %q", domain.ErrConfiguration, cfg.Vector.Engine)
	}
}
