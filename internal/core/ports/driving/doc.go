// Package driving provides interfaces consumed by user-facing adapters
// (primary/inbound ports): the CLI surface and anything else that
// drives ingestion, retrieval and analysis.
package driving
