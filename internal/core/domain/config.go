package domain

// ModelRole names a configured language model role. Each enrichment
// stage and the analysis framework are mapped to one role so different
// model sizes can serve different tasks.
type ModelRole string

// Roles consumed by the pipeline and plugins.
const (
	RoleStratify   ModelRole = "stratify"
	RoleStructure  ModelRole = "structure"
	RoleEnrich     ModelRole = "enrich"
	RoleSynthesize ModelRole = "synthesize"
	RoleAnalysis   ModelRole = "analysis"
)

// Config is the resolved application configuration threaded explicitly
// through every operation. There is no process-wide mutable singleton.
type Config struct {
	// DataDir is the project data directory holding the manifest
	// database and artifacts.
	DataDir string

	// Embedding selects the embedding provider and model.
	Embedding EmbeddingConfig

	// LLM selects the language service endpoint and the model mapped to
	// each role.
	LLM LLMConfig

	// Vector selects the vector store engine.
	Vector VectorConfig

	// Ingest holds chunking and batching parameters.
	Ingest IngestConfig

	// EmbedFields is the allow-list of metadata fields eligible for
	// embedding composition. Changing it invalidates all embeddings and
	// requires re-ingestion.
	EmbedFields []string

	// HiddenFields are metadata fields hidden from default display.
	HiddenFields []string
}

// EmbeddingConfig configures the embedding service boundary.
type EmbeddingConfig struct {
	Provider   string
	BaseURL    string
	Model      string
	Dimensions int
}

// LLMConfig configures the generative-language service boundary.
type LLMConfig struct {
	Provider string
	BaseURL  string
	// Roles maps each ModelRole to a model name.
	Roles map[ModelRole]string
	// TimeoutSeconds bounds every single service call.
	TimeoutSeconds int
	// MaxRetries bounds retry attempts before a stage degrades.
	MaxRetries int
}

// VectorConfig selects and configures the vector store engine.
type VectorConfig struct {
	// Engine is "sqlite", "qdrant" or "memory".
	Engine     string
	URL        string
	APIKey     string
	Collection string
}

// IngestConfig holds chunking and batch processing parameters.
type IngestConfig struct {
	// ChunkSize is the maximum chunk size in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int

	// Workers bounds concurrent document enrichment within one batch.
	Workers int
}

// RoleModel resolves the model name for a role.
func (c LLMConfig) RoleModel(role ModelRole) (string, error) {
	m, ok := c.Roles[role]
	if !ok || m == "" {
		return "", ErrUnknownRole
	}
	return m, nil
}

// Embeddable reports whether a metadata field is within the embedding
// allow-list.
func (c Config) Embeddable(field string) bool {
	for _, f := range c.EmbedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Hidden reports whether a metadata field is hidden from default display.
func (c Config) Hidden(field string) bool {
	for _, f := range c.HiddenFields {
		if f == field {
			return true
		}
	}
	return false
}
