package plugins

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

var _ Plugin = (*Clustering)(nil)

// Default clustering parameters.
const (
	DefaultClusterCount = 5
	DefaultSeed         = 42

	// labelSamples bounds the member texts included in the labelling
	// prompt per cluster.
	labelSamples = 5
)

// Clustering partitions the stored vectors into k groups, labels each
// group with a short language-service-generated axial theme, and with
// Save writes cluster_id and axial_theme back into the metadata of
// every member chunk.
type Clustering struct{}

func (p *Clustering) Name() string { return "clustering" }

func (p *Clustering) Describe() string {
	return "Partition the corpus into k labelled thematic clusters"
}

func (p *Clustering) Run(ctx context.Context, deps Deps, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error) {
	records, err := deps.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: corpus is empty", domain.ErrNotFound)
	}

	k := opts.K
	if k <= 0 {
		k = DefaultClusterCount
	}
	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSeed
	}

	vectors := make([][]float32, len(records))
	for i, rec := range records {
		vectors[i] = rec.Vector
	}

	groups := kmeansPartition(vectors, k, rand.New(rand.NewSource(seed)))

	outcome := &domain.AnalysisOutcome{Plugin: p.Name()}
	var sb strings.Builder
	for c, members := range groups {
		if len(members) == 0 {
			continue
		}
		cluster := domain.ClusterResult{
			Label:    fmt.Sprintf("cluster_%d", c),
			ChunkIDs: make([]string, 0, len(members)),
		}
		for _, idx := range members {
			cluster.ChunkIDs = append(cluster.ChunkIDs, records[idx].ChunkID)
			if len(cluster.Samples) < labelSamples {
				cluster.Samples = append(cluster.Samples, records[idx].Text)
			}
		}
		sort.Strings(cluster.ChunkIDs)

		theme, err := p.label(ctx, deps.LLM, records, members)
		if err != nil {
			// Labelling failure does not invalidate the partition.
			logger.Warn("Cluster %s labelling failed: %v", cluster.Label, err)
			theme = "unlabelled"
		}
		cluster.AxialTheme = theme

		outcome.Clusters = append(outcome.Clusters, cluster)
		fmt.Fprintf(&sb, "%s (%d chunks): %s\n", cluster.Label, len(cluster.ChunkIDs), theme)
	}
	outcome.Text = strings.TrimSpace(sb.String())

	if opts.Save {
		if err := p.persist(ctx, deps.Store, outcome.Clusters); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// label asks the language service for a 2-5 word axial theme from the
// member themes and sampled texts.
func (p *Clustering) label(ctx context.Context, llm driven.LLMService, records []domain.VectorRecord, members []int) (string, error) {
	themeCounts := make(map[string]int)
	var samples []string
	for _, idx := range members {
		for _, t := range records[idx].StringsField(domain.FieldThemes) {
			themeCounts[t]++
		}
		if len(samples) < labelSamples {
			samples = append(samples, snippet(records[idx].Text, 200))
		}
	}

	themes := make([]string, 0, len(themeCounts))
	for t := range themeCounts {
		themes = append(themes, t)
	}
	sort.Slice(themes, func(i, j int) bool {
		if themeCounts[themes[i]] != themeCounts[themes[j]] {
			return themeCounts[themes[i]] > themeCounts[themes[j]]
		}
		return themes[i] < themes[j]
	})
	if len(themes) > 10 {
		themes = themes[:10]
	}

	var sb strings.Builder
	sb.WriteString("A group of related text passages carries these themes: ")
	sb.WriteString(strings.Join(themes, ", "))
	sb.WriteString("\n\nSample passages:\n")
	for _, s := range samples {
		sb.WriteString("- ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString("\nName the single axial theme unifying this group in 2-5 words. Respond with the theme only, no punctuation or explanation.")

	out, err := llm.Generate(ctx, domain.RoleAnalysis, sb.String(), driven.GenerateOptions{Temperature: 0.1, MaxTokens: 30})
	if err != nil {
		return "", err
	}
	theme := strings.TrimSpace(strings.Split(strings.TrimSpace(out), "\n")[0])
	theme = strings.Trim(theme, `"'.`)
	if theme == "" {
		return "", fmt.Errorf("%w: empty theme", domain.ErrMalformedResponse)
	}
	return theme, nil
}

// persist writes cluster_id and axial_theme into every member chunk's
// metadata, one store write per cluster.
func (p *Clustering) persist(ctx context.Context, store driven.VectorStore, clusters []domain.ClusterResult) error {
	for _, cluster := range clusters {
		fields := map[string]any{
			domain.FieldClusterID:  cluster.Label,
			domain.FieldAxialTheme: cluster.AxialTheme,
		}
		if err := store.UpdateMetadata(ctx, cluster.ChunkIDs, fields); err != nil {
			return fmt.Errorf("persist %s: %w", cluster.Label, err)
		}
	}
	return nil
}

// snippet truncates text for prompt and display use.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}
