package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIOFailure indicates a source file could not be read or hashed.
	// Fatal for that single file only; the manifest is left untouched.
	ErrIOFailure = errors.New("io failure")

	// ErrServiceUnavailable indicates the language or embedding service
	// was unreachable after retries.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMalformedResponse indicates language service output failed to
	// parse into the expected structure. Stage-local degrade and continue.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrConfiguration indicates an invalid configuration was detected
	// before any mutation occurred.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownRole indicates a language model role is not configured.
	ErrUnknownRole = errors.New("unknown model role")

	// ErrUnknownDocType indicates an unrecognised document type.
	ErrUnknownDocType = errors.New("unknown document type")

	// ErrVersionConflict indicates an attempt to store chunks for a file
	// already advanced to a newer version. Rejected, never overwritten.
	ErrVersionConflict = errors.New("version conflict")

	// ErrPluginNotFound indicates an unknown analysis plugin name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and similarity queries are disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the language service is not configured.
	ErrLLMUnavailable = errors.New("language service unavailable")
)
