// Package domain contains the core business entities for corpus
// ingestion, enrichment and analysis. It has no dependencies on
// adapters or external services.
package domain
