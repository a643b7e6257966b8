// Package reader loads source files as cleaned text. Raw format
// parsing beyond plain text and markdown is left to external tooling;
// this package only strips control and format runes that would pollute
// hashing, chunking and prompts.
package reader

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// Read loads and cleans the file at path. Unreadable input fails with
// domain.ErrIOFailure so callers can isolate the failure to this file.
func Read(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrIOFailure, path, err)
	}
	return Clean(string(raw)), nil
}

// Clean removes control and format runes, keeping line structure.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
