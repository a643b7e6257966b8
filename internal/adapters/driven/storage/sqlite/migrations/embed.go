// Package migrations embeds the schema migrations for the manifest and
// record tables. Each migration records its own version row.
package migrations

import "embed"

// FS holds the SQL files embedded at compile time, applied in
// lexicographic order.
//
//go:embed *.sql
var FS embed.FS
