// Package sqlite provides the local storage engine: one SQLite database
// holding both the corpus manifest and the vector records.
//
// The store exposes the manifest and vector store interfaces as
// wrappers over a shared connection, so a project directory is fully
// described by a single database file. Similarity queries are
// brute-force cosine scans, which is the right trade-off for corpora of
// personal-project size; larger corpora select the Qdrant engine
// instead.
package sqlite
