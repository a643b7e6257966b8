// Package file provides the TOML-backed configuration store. The
// resolved configuration is an explicit value threaded through every
// operation; nothing reads the file after startup.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// ConfigFileName is the TOML file name inside the config directory.
const ConfigFileName = "config.toml"

// fileConfig is the on-disk TOML shape. It mirrors domain.Config but
// keeps wire names and optionality separate from the domain type.
type fileConfig struct {
	DataDir string `toml:"data_dir,omitempty"`

	Embedding struct {
		Provider   string `toml:"provider,omitempty"`
		BaseURL    string `toml:"base_url,omitempty"`
		Model      string `toml:"model,omitempty"`
		Dimensions int    `toml:"dimensions,omitempty"`
	} `toml:"embedding"`

	LLM struct {
		Provider       string            `toml:"provider,omitempty"`
		BaseURL        string            `toml:"base_url,omitempty"`
		Roles          map[string]string `toml:"roles,omitempty"`
		TimeoutSeconds int               `toml:"timeout_seconds,omitempty"`
		MaxRetries     int               `toml:"max_retries,omitempty"`
	} `toml:"llm"`

	Vector struct {
		Engine     string `toml:"engine,omitempty"`
		URL        string `toml:"url,omitempty"`
		APIKey     string `toml:"api_key,omitempty"`
		Collection string `toml:"collection,omitempty"`
	} `toml:"vector"`

	Ingest struct {
		ChunkSize    int `toml:"chunk_size,omitempty"`
		ChunkOverlap int `toml:"chunk_overlap,omitempty"`
		Workers      int `toml:"workers,omitempty"`
	} `toml:"ingest"`

	Display struct {
		HiddenFields []string `toml:"hidden_fields,omitempty"`
	} `toml:"display"`

	EmbedFields []string `toml:"embed_fields,omitempty"`
}

// Default returns the configuration used when no file exists: a local
// SQLite engine with Ollama for both models.
func Default() domain.Config {
	return domain.Config{
		Embedding: domain.EmbeddingConfig{
			Provider: "ollama",
		},
		LLM: domain.LLMConfig{
			Provider: "ollama",
			Roles: map[domain.ModelRole]string{
				domain.RoleStratify:   "llama3.2",
				domain.RoleStructure:  "llama3.2",
				domain.RoleEnrich:     "llama3.2",
				domain.RoleSynthesize: "llama3.2",
				domain.RoleAnalysis:   "llama3.2",
			},
		},
		Vector: domain.VectorConfig{
			Engine: "sqlite",
		},
		Ingest: domain.IngestConfig{
			ChunkSize:    1000,
			ChunkOverlap: 150,
			Workers:      4,
		},
		EmbedFields: []string{
			domain.FieldThemes,
			domain.FieldHypotheticalQuestion,
			domain.FieldSourceQuestion,
			domain.FieldAxialTheme,
		},
		HiddenFields: []string{
			domain.FieldHolisticSummary,
		},
	}
}

// Load reads the configuration file from configDir, applying defaults
// for anything unset. A missing file yields the defaults. If configDir
// is empty, defaults to ~/.corpora.
func Load(configDir string) (domain.Config, error) {
	cfg := Default()

	dir, err := resolveDir(configDir)
	if err != nil {
		return cfg, err
	}
	cfg.DataDir = filepath.Join(dir, "data")

	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: reading config: %v", domain.ErrConfiguration, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("%w: parsing config: %v", domain.ErrConfiguration, err)
	}

	apply(&cfg, fc)
	return cfg, nil
}

// Save writes the configuration to configDir, creating the directory if
// needed.
func Save(configDir string, cfg domain.Config) error {
	dir, err := resolveDir(configDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating config directory: %v", domain.ErrConfiguration, err)
	}

	var fc fileConfig
	fc.DataDir = cfg.DataDir
	fc.Embedding.Provider = cfg.Embedding.Provider
	fc.Embedding.BaseURL = cfg.Embedding.BaseURL
	fc.Embedding.Model = cfg.Embedding.Model
	fc.Embedding.Dimensions = cfg.Embedding.Dimensions
	fc.LLM.Provider = cfg.LLM.Provider
	fc.LLM.BaseURL = cfg.LLM.BaseURL
	fc.LLM.TimeoutSeconds = cfg.LLM.TimeoutSeconds
	fc.LLM.MaxRetries = cfg.LLM.MaxRetries
	if len(cfg.LLM.Roles) > 0 {
		fc.LLM.Roles = make(map[string]string, len(cfg.LLM.Roles))
		for role, model := range cfg.LLM.Roles {
			fc.LLM.Roles[string(role)] = model
		}
	}
	fc.Vector.Engine = cfg.Vector.Engine
	fc.Vector.URL = cfg.Vector.URL
	fc.Vector.APIKey = cfg.Vector.APIKey
	fc.Vector.Collection = cfg.Vector.Collection
	fc.Ingest.ChunkSize = cfg.Ingest.ChunkSize
	fc.Ingest.ChunkOverlap = cfg.Ingest.ChunkOverlap
	fc.Ingest.Workers = cfg.Ingest.Workers
	fc.Display.HiddenFields = cfg.HiddenFields
	fc.EmbedFields = cfg.EmbedFields

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0600); err != nil {
		return fmt.Errorf("%w: writing config: %v", domain.ErrConfiguration, err)
	}
	return nil
}

func resolveDir(configDir string) (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: getting home directory: %v", domain.ErrConfiguration, err)
	}
	return filepath.Join(home, ".corpora"), nil
}

// apply overlays the file values onto cfg, keeping defaults for unset
// fields.
func apply(cfg *domain.Config, fc fileConfig) {
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.Embedding.Provider != "" {
		cfg.Embedding.Provider = fc.Embedding.Provider
	}
	if fc.Embedding.BaseURL != "" {
		cfg.Embedding.BaseURL = fc.Embedding.BaseURL
	}
	if fc.Embedding.Model != "" {
		cfg.Embedding.Model = fc.Embedding.Model
	}
	if fc.Embedding.Dimensions > 0 {
		cfg.Embedding.Dimensions = fc.Embedding.Dimensions
	}
	if fc.LLM.Provider != "" {
		cfg.LLM.Provider = fc.LLM.Provider
	}
	if fc.LLM.BaseURL != "" {
		cfg.LLM.BaseURL = fc.LLM.BaseURL
	}
	if fc.LLM.TimeoutSeconds > 0 {
		cfg.LLM.TimeoutSeconds = fc.LLM.TimeoutSeconds
	}
	if fc.LLM.MaxRetries > 0 {
		cfg.LLM.MaxRetries = fc.LLM.MaxRetries
	}
	// Role overrides merge over the defaults, so a file can remap one
	// role without restating the rest.
	for role, model := range fc.LLM.Roles {
		cfg.LLM.Roles[domain.ModelRole(role)] = model
	}
	if fc.Vector.Engine != "" {
		cfg.Vector.Engine = fc.Vector.Engine
	}
	if fc.Vector.URL != "" {
		cfg.Vector.URL = fc.Vector.URL
	}
	if fc.Vector.APIKey != "" {
		cfg.Vector.APIKey = fc.Vector.APIKey
	}
	if fc.Vector.Collection != "" {
		cfg.Vector.Collection = fc.Vector.Collection
	}
	if fc.Ingest.ChunkSize > 0 {
		cfg.Ingest.ChunkSize = fc.Ingest.ChunkSize
	}
	if fc.Ingest.ChunkOverlap > 0 {
		cfg.Ingest.ChunkOverlap = fc.Ingest.ChunkOverlap
	}
	if fc.Ingest.Workers > 0 {
		cfg.Ingest.Workers = fc.Ingest.Workers
	}
	if len(fc.Display.HiddenFields) > 0 {
		cfg.HiddenFields = fc.Display.HiddenFields
	}
	if len(fc.EmbedFields) > 0 {
		cfg.EmbedFields = fc.EmbedFields
	}
}
