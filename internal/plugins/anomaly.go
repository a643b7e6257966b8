package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/vectormath"
)

var _ Plugin = (*Anomaly)(nil)

// Default anomaly parameters.
const (
	DefaultOutlierCount = 5

	// anomalyNeighbours is the neighbourhood size for the inlier score.
	anomalyNeighbours = 5
)

// Anomaly surfaces the chunks least similar to the rest of the corpus.
// Each record's inlier score is its mean cosine similarity to its
// nearest neighbours; the lowest scores are reported as outliers.
type Anomaly struct{}

func (p *Anomaly) Name() string { return "anomaly" }

func (p *Anomaly) Describe() string {
	return "Surface the chunks least similar to the rest of the corpus"
}

func (p *Anomaly) Run(ctx context.Context, deps Deps, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error) {
	records, err := deps.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 records", domain.ErrNotFound)
	}

	k := opts.K
	if k <= 0 {
		k = DefaultOutlierCount
	}
	if k > len(records) {
		k = len(records)
	}

	scored := make([]domain.QueryResult, len(records))
	for i, rec := range records {
		scored[i] = domain.QueryResult{Record: rec, Score: inlierScore(records, i)}
	}
	// Ascending inlier score: the least similar records come first.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })

	outcome := &domain.AnalysisOutcome{
		Plugin:   p.Name(),
		Outliers: scored[:k],
	}

	var sb strings.Builder
	sb.WriteString("Least typical chunks (lowest similarity to their neighbourhood):\n")
	for i, res := range outcome.Outliers {
		fmt.Fprintf(&sb, "%d. [%.3f] %s: %s\n",
			i+1, res.Score,
			res.Record.StringField(domain.FieldFilename),
			snippet(res.Record.Text, 120))
	}
	outcome.Text = strings.TrimSpace(sb.String())
	return outcome, nil
}

// inlierScore is the mean cosine similarity between record i and its
// nearest neighbours.
func inlierScore(records []domain.VectorRecord, i int) float64 {
	sims := make([]float64, 0, len(records)-1)
	for j, other := range records {
		if j == i {
			continue
		}
		sims = append(sims, vectormath.Cosine(records[i].Vector, other.Vector))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))

	n := anomalyNeighbours
	if n > len(sims) {
		n = len(sims)
	}
	var sum float64
	for _, s := range sims[:n] {
		sum += s
	}
	return sum / float64(n)
}
