// Package charts renders chart specs into PNG artifacts stored under the
// owning session.
package charts

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tablewise/tablewise/internal/analyze"
	"github.com/tablewise/tablewise/internal/session"
	"github.com/tablewise/tablewise/internal/table"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 4 * vg.Inch
)

var barWidth = vg.Points(20)

// Renderer draws chart specs with gonum/plot and stores the PNGs as
// session artifacts.
type Renderer struct {
	store  session.Store
	logger *zap.Logger
}

// NewRenderer returns a renderer writing into the given store.
func NewRenderer(store session.Store, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{store: store, logger: logger}
}

// Render draws every spec it can and returns the stored artifact names.
// A spec that fails to draw is logged and skipped; one bad chart must not
// take down the whole analysis.
func (r *Renderer) Render(ctx context.Context, sessionID, prefix string, t *table.Table, specs []analyze.ChartSpec) ([]string, error) {
	var names []string
	for _, spec := range specs {
		name, data, err := r.draw(prefix, t, spec)
		if err != nil {
			r.logger.Warn("skipping chart",
				zap.String("session_id", sessionID),
				zap.String("type", spec.Type),
				zap.Error(err))
			continue
		}
		if err := r.store.Put(ctx, sessionID, session.KindArtifact, name, data); err != nil {
			return names, fmt.Errorf("storing chart %s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

func (r *Renderer) draw(prefix string, t *table.Table, spec analyze.ChartSpec) (string, []byte, error) {
	switch spec.Type {
	case analyze.ChartHistogram:
		return drawHistogram(prefix, t, spec)
	case analyze.ChartBar:
		return drawBar(prefix, spec)
	case analyze.ChartScatter:
		return drawScatter(prefix, t, spec)
	default:
		return "", nil, fmt.Errorf("unknown chart type %q", spec.Type)
	}
}

func drawHistogram(prefix string, t *table.Table, spec analyze.ChartSpec) (string, []byte, error) {
	col := t.Column(spec.Column)
	if col == nil {
		return "", nil, fmt.Errorf("column %q not found", spec.Column)
	}
	var vals plotter.Values
	for _, v := range col.Values {
		if v.Kind == table.KindNumber {
			vals = append(vals, v.Num)
		}
	}
	if len(vals) == 0 {
		return "", nil, fmt.Errorf("column %q has no numeric values", spec.Column)
	}

	p := plot.New()
	p.Title.Text = "Distribution of " + spec.Column
	p.X.Label.Text = spec.Column
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(vals, spec.Bins)
	if err != nil {
		return "", nil, fmt.Errorf("histogram for %q: %w", spec.Column, err)
	}
	p.Add(h)

	data, err := encodePNG(p)
	if err != nil {
		return "", nil, err
	}
	return artifactName(prefix, spec.Column+"_histogram"), data, nil
}

func drawBar(prefix string, spec analyze.ChartSpec) (string, []byte, error) {
	if len(spec.Counts) == 0 {
		return "", nil, fmt.Errorf("column %q has no categories", spec.Column)
	}
	vals := make(plotter.Values, len(spec.Counts))
	labels := make([]string, len(spec.Counts))
	for i, c := range spec.Counts {
		vals[i] = float64(c.Count)
		labels[i] = c.Value
	}

	p := plot.New()
	p.Title.Text = "Counts of " + spec.Column
	p.Y.Label.Text = "count"

	bars, err := plotter.NewBarChart(vals, barWidth)
	if err != nil {
		return "", nil, fmt.Errorf("bar chart for %q: %w", spec.Column, err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	data, err := encodePNG(p)
	if err != nil {
		return "", nil, err
	}
	return artifactName(prefix, spec.Column+"_barchart"), data, nil
}

func drawScatter(prefix string, t *table.Table, spec analyze.ChartSpec) (string, []byte, error) {
	xCol, yCol := t.Column(spec.X), t.Column(spec.Y)
	if xCol == nil || yCol == nil {
		return "", nil, fmt.Errorf("columns %q/%q not found", spec.X, spec.Y)
	}
	var pts plotter.XYs
	for i := range xCol.Values {
		xv, yv := xCol.Values[i], yCol.Values[i]
		if xv.Kind == table.KindNumber && yv.Kind == table.KindNumber {
			pts = append(pts, plotter.XY{X: xv.Num, Y: yv.Num})
		}
	}
	if len(pts) == 0 {
		return "", nil, fmt.Errorf("no complete pairs for %q vs %q", spec.X, spec.Y)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s (r=%.2f)", spec.X, spec.Y, float64(spec.R))
	p.X.Label.Text = spec.X
	p.Y.Label.Text = spec.Y

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return "", nil, fmt.Errorf("scatter for %q vs %q: %w", spec.X, spec.Y, err)
	}
	p.Add(sc)

	data, err := encodePNG(p)
	if err != nil {
		return "", nil, err
	}
	return artifactName(prefix, spec.X+"_vs_"+spec.Y+"_scatterplot"), data, nil
}

func encodePNG(p *plot.Plot) ([]byte, error) {
	w, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	return buf.Bytes(), nil
}

// artifactName flattens the table prefix and chart label into a storable
// filename.
func artifactName(prefix, label string) string {
	return sanitizeToken(prefix) + "_" + sanitizeToken(label) + ".png"
}

func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
