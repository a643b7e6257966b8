// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): storage, vector engine, language and
// embedding services.
package driven
