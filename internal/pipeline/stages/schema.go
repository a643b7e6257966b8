package stages

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// themesSchema validates the Structure stage response: a short ordered
// list of theme labels.
const themesSchema = `{
	"type": "array",
	"items": {"type": "string", "minLength": 1},
	"minItems": 1,
	"maxItems": 8
}`

// qaPairsSchema validates the Stratify stage response: question/answer
// spans identified in an interview transcript.
const qaPairsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"question": {"type": "string", "minLength": 1},
			"answer": {"type": "string", "minLength": 1}
		},
		"required": ["question", "answer"]
	},
	"minItems": 1
}`

// extractJSON isolates the first JSON array or object embedded in a
// free-form model response. Models often wrap structures in prose or
// code fences.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(s, pair[0])
		end := strings.LastIndexByte(s, pair[1])
		if start >= 0 && end > start {
			return s[start : end+1]
		}
	}
	return s
}

// decodeValidated extracts, schema-validates and unmarshals a model
// response into out. Any failure maps to domain.ErrMalformedResponse.
func decodeValidated(schema, response string, out any) error {
	raw := extractJSON(response)
	if raw == "" {
		return fmt.Errorf("%w: empty response", domain.ErrMalformedResponse)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if !result.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrMalformedResponse, result.Errors()[0])
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
