package plugins

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/vectormath"
)

var _ Plugin = (*Visualize)(nil)

// ArtifactName is the file name of the generated knowledge map.
const ArtifactName = "knowledge_map.png"

// Visualize projects the stored vectors to two dimensions with PCA and
// renders a scatter plot, colouring points by axial theme when the
// clustering plugin has persisted one and by document type otherwise.
type Visualize struct{}

func (p *Visualize) Name() string { return "visualize" }

func (p *Visualize) Describe() string {
	return "Render a 2D knowledge map of the corpus vectors"
}

func (p *Visualize) Run(ctx context.Context, deps Deps, opts domain.AnalysisOptions) (*domain.AnalysisOutcome, error) {
	records, err := deps.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 records to project", domain.ErrNotFound)
	}

	coords, err := project2D(records)
	if err != nil {
		return nil, err
	}

	pl := plot.New()
	pl.Title.Text = "Knowledge Map"
	pl.X.Label.Text = "PC1"
	pl.Y.Label.Text = "PC2"

	// Group points by colour key so each theme gets one legend entry.
	grouped := make(map[string]plotter.XYs)
	for i, rec := range records {
		key := colourKey(rec)
		grouped[key] = append(grouped[key], plotter.XY{X: coords[i][0], Y: coords[i][1]})
	}
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, key := range keys {
		s, err := plotter.NewScatter(grouped[key])
		if err != nil {
			return nil, fmt.Errorf("scatter for %q: %w", key, err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Radius = vg.Points(3)
		pl.Add(s)
		pl.Legend.Add(key, s)
	}
	pl.Legend.Top = true

	dir := opts.OutputDir
	if dir == "" {
		dir = deps.Config.DataDir
	}
	path := filepath.Join(dir, ArtifactName)
	if err := pl.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return nil, fmt.Errorf("%w: save plot: %v", domain.ErrIOFailure, err)
	}

	return &domain.AnalysisOutcome{
		Plugin:       p.Name(),
		Text:         fmt.Sprintf("Projected %d chunks into %d groups. Map written to %s", len(records), len(keys), path),
		ArtifactPath: path,
	}, nil
}

// project2D reduces the record vectors to their first two principal
// components. PCA is deterministic for fixed input, so repeated runs
// over an unchanged corpus produce the same map.
func project2D(records []domain.VectorRecord) ([][2]float64, error) {
	dim := len(records[0].Vector)
	data := mat.NewDense(len(records), dim, nil)
	for i, rec := range records {
		if len(rec.Vector) != dim {
			return nil, fmt.Errorf("%w: inconsistent vector dimensions", domain.ErrConfiguration)
		}
		data.SetRow(i, vectormath.ToFloat64(rec.Vector))
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("%w: principal components failed to converge", domain.ErrIOFailure)
	}
	var proj mat.Dense
	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	proj.Mul(data, vectors.Slice(0, dim, 0, 2))

	coords := make([][2]float64, len(records))
	for i := range records {
		coords[i] = [2]float64{proj.At(i, 0), proj.At(i, 1)}
	}
	return coords, nil
}

func colourKey(rec domain.VectorRecord) string {
	if theme := rec.StringField(domain.FieldAxialTheme); theme != "" {
		return theme
	}
	if dt := rec.StringField(domain.FieldDocType); dt != "" {
		return dt
	}
	return "unclassified"
}
