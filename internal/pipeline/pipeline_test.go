package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/pipeline/splitter"
)

// mockLLM routes responses by role. Responses for a role are consumed
// in order, repeating the last one.
type mockLLM struct {
	responses map[domain.ModelRole][]string
	calls     map[domain.ModelRole]int
	err       error
}

func newMockLLM() *mockLLM {
	return &mockLLM{
		responses: map[domain.ModelRole][]string{},
		calls:     map[domain.ModelRole]int{},
	}
}

func (m *mockLLM) Generate(_ context.Context, role domain.ModelRole, _ string, _ driven.GenerateOptions) (string, error) {
	return m.next(role)
}

func (m *mockLLM) Chat(_ context.Context, role domain.ModelRole, _ []driven.ChatMessage, _ driven.GenerateOptions) (string, error) {
	return m.next(role)
}

func (m *mockLLM) next(role domain.ModelRole) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	rs := m.responses[role]
	if len(rs) == 0 {
		return "", errors.New("no scripted response for role " + string(role))
	}
	i := m.calls[role]
	m.calls[role]++
	if i >= len(rs) {
		i = len(rs) - 1
	}
	return rs[i], nil
}

func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func testFile(dt domain.DocType) domain.CorpusFile {
	return domain.CorpusFile{
		ID:       "file-1",
		Filename: "doc.txt",
		DocType:  dt,
		Version:  1,
	}
}

func TestPipeline_Run_Document(t *testing.T) {
	llm := newMockLLM()
	llm.responses[domain.RoleStructure] = []string{`["risk", "safety"]`}
	llm.responses[domain.RoleEnrich] = []string{"What is the risk?"}
	llm.responses[domain.RoleSynthesize] = []string{"A summary of the document."}

	// Chunk size forces exactly two chunks.
	p := New(llm, splitter.New(splitter.WithChunkSize(100), splitter.WithOverlap(20)))
	text := strings.Repeat("a", 120)

	res, err := p.Run(context.Background(), testFile(domain.DocTypeDocument), text)

	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Empty(t, res.Degraded)

	for _, c := range res.Chunks {
		themes := c.StringsField(domain.FieldThemes)
		assert.GreaterOrEqual(t, len(themes), 2)
		assert.LessOrEqual(t, len(themes), 4)
		assert.Equal(t, "What is the risk?", c.StringField(domain.FieldHypotheticalQuestion))
		assert.Equal(t, "A summary of the document.", c.StringField(domain.FieldHolisticSummary))
	}

	// The summary is broadcast identically to both chunks.
	assert.Equal(t,
		res.Chunks[0].StringField(domain.FieldHolisticSummary),
		res.Chunks[1].StringField(domain.FieldHolisticSummary))
}

func TestPipeline_Run_Interview(t *testing.T) {
	llm := newMockLLM()
	llm.responses[domain.RoleStratify] = []string{
		`[{"question": "How did it start?", "answer": "It started small."},
		  {"question": "What changed?", "answer": "Everything changed."}]`,
	}
	llm.responses[domain.RoleStructure] = []string{`["origins", "change"]`}
	llm.responses[domain.RoleEnrich] = []string{"What happened?"}
	llm.responses[domain.RoleSynthesize] = []string{"Interview summary."}

	p := New(llm, splitter.New())

	res, err := p.Run(context.Background(), testFile(domain.DocTypeInterview), "Q: ... A: ...")

	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "It started small.", res.Chunks[0].Text)
	assert.Equal(t, "How did it start?", res.Chunks[0].StringField(domain.FieldSourceQuestion))
	assert.Equal(t, "What changed?", res.Chunks[1].StringField(domain.FieldSourceQuestion))
}

func TestPipeline_Run_StratifyFallback(t *testing.T) {
	llm := newMockLLM()
	// Stratify returns garbage twice (initial + repair) and falls back.
	llm.responses[domain.RoleStratify] = []string{"not json", "still not json"}
	llm.responses[domain.RoleStructure] = []string{`["a", "b"]`}
	llm.responses[domain.RoleEnrich] = []string{"Q?"}
	llm.responses[domain.RoleSynthesize] = []string{"S."}

	p := New(llm, splitter.New(splitter.WithChunkSize(1000), splitter.WithOverlap(0)))

	res, err := p.Run(context.Background(), testFile(domain.DocTypeInterview), "plain transcript text")

	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Contains(t, res.Degraded, domain.FieldSourceQuestion)
	// Fallback chunks are the generic splitter's output.
	assert.Equal(t, "plain transcript text", res.Chunks[0].Text)
}

func TestPipeline_Run_RepairRetry(t *testing.T) {
	llm := newMockLLM()
	// First Structure reply malformed, repair succeeds.
	llm.responses[domain.RoleStructure] = []string{"look at these themes!", `["fixed"]`}
	llm.responses[domain.RoleEnrich] = []string{"Q?"}
	llm.responses[domain.RoleSynthesize] = []string{"S."}

	p := New(llm, splitter.New())

	res, err := p.Run(context.Background(), testFile(domain.DocTypeDocument), "some text")

	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, []string{"fixed"}, res.Chunks[0].StringsField(domain.FieldThemes))
	assert.NotContains(t, res.Degraded, domain.FieldThemes)
}

func TestPipeline_Run_DegradeNeverFailsDocument(t *testing.T) {
	llm := newMockLLM()
	llm.responses[domain.RoleStructure] = []string{"garbage", "garbage"}
	llm.responses[domain.RoleEnrich] = []string{""}
	llm.responses[domain.RoleSynthesize] = []string{"  "}

	p := New(llm, splitter.New())

	res, err := p.Run(context.Background(), testFile(domain.DocTypeDocument), "some text")

	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.ElementsMatch(t, res.Degraded, []string{
		domain.FieldThemes,
		domain.FieldHypotheticalQuestion,
		domain.FieldHolisticSummary,
	})

	_, hasThemes := res.Chunks[0].Metadata[domain.FieldThemes]
	assert.False(t, hasThemes, "degraded field must be omitted, not set to junk")
}
