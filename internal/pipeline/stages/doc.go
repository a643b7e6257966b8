// Package stages implements the four generative enrichment stages of
// the ingestion pipeline: Stratify, Structure, Enrich and Synthesize.
//
// Every stage treats the language service response as untrusted. The
// response is validated against a JSON Schema; on failure the stage
// retries once with a repair prompt, then reports a malformed response
// so the pipeline can omit the affected field instead of failing the
// document.
package stages
