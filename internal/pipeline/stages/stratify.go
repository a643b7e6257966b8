package stages

import (
	"context"

	"github.com/google/uuid"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

const stratifySystemPrompt = `You are analysing an interview transcript.
Partition the transcript into question/answer pairs. Each answer span must be
verbatim text from the transcript; canonicalise the question it responds to.
Respond ONLY with a valid JSON list of objects with "question" and "answer"
string keys.
Example: [{"question": "How did you start?", "answer": "It began when..."}]`

// qaPair is one stratified question/answer span.
type qaPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Stratify partitions interview-like documents into semantically
// identified answer spans instead of fixed-size chunks. It runs only
// for document types flagged as interview-like.
type Stratify struct {
	llm driven.LLMService
}

// NewStratify creates the Stratify stage.
func NewStratify(llm driven.LLMService) *Stratify {
	return &Stratify{llm: llm}
}

// Split asks the language service to partition the full document text.
// Each resulting chunk's text is an answer span with the associated
// question carried in metadata. When the service yields no parseable
// structure the second return is false and the caller falls back to
// generic chunking rather than failing the document.
func (s *Stratify) Split(ctx context.Context, file domain.CorpusFile, text string) ([]domain.Chunk, bool) {
	messages := []driven.ChatMessage{
		{Role: "system", Content: stratifySystemPrompt},
		{Role: "user", Content: "Transcript:\n---\n" + text},
	}

	var pairs []qaPair
	if err := chatValidated(ctx, s.llm, domain.RoleStratify, messages, qaPairsSchema, &pairs); err != nil {
		return nil, false
	}
	if len(pairs) == 0 {
		return nil, false
	}

	chunks := make([]domain.Chunk, 0, len(pairs))
	for i, p := range pairs {
		chunks = append(chunks, domain.Chunk{
			ID:       uuid.New().String(),
			FileID:   file.ID,
			Version:  file.Version,
			Position: i,
			Text:     p.Answer,
			Metadata: map[string]any{
				domain.FieldFilename:       file.Filename,
				domain.FieldDocType:        string(file.DocType),
				domain.FieldSourceQuestion: p.Question,
			},
		})
	}
	return chunks, true
}
