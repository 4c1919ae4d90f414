package analyze

import (
	"math"
	"sort"
	"strings"

	"github.com/tablewise/tablewise/internal/clean"
	"github.com/tablewise/tablewise/internal/infer"
	"github.com/tablewise/tablewise/internal/jsonutil"
	"github.com/tablewise/tablewise/internal/stats"
	"github.com/tablewise/tablewise/internal/table"
)

// Config holds the analysis knobs.
type Config struct {
	Infer infer.Config
	// CorrThreshold is the minimum |r| for a numeric pair to get a
	// scatter-plot spec.
	CorrThreshold float64
	// HistogramBins is the default (and minimum) histogram bin count;
	// Sturges' rule may raise it for large tables.
	HistogramBins int
}

// DefaultConfig matches the documented defaults: |r| >= 0.5, 10 bins.
func DefaultConfig() Config {
	return Config{Infer: infer.DefaultConfig(), CorrThreshold: 0.5, HistogramBins: 10}
}

// NumericStats is the describe() row for one numeric column. Count is the
// number of non-missing observations; all other fields are NaN (serialized
// as null) when count is too small to define them.
type NumericStats struct {
	Name   string         `json:"name"`
	Count  int            `json:"count"`
	Mean   jsonutil.Float `json:"mean"`
	Std    jsonutil.Float `json:"std"`
	Min    jsonutil.Float `json:"min"`
	Q25    jsonutil.Float `json:"q25"`
	Median jsonutil.Float `json:"median"`
	Q75    jsonutil.Float `json:"q75"`
	Max    jsonutil.Float `json:"max"`
}

// CategoricalStats is the describe() row for one categorical column.
type CategoricalStats struct {
	Name          string `json:"name"`
	Count         int    `json:"count"`
	Unique        int    `json:"unique"`
	Mode          string `json:"mode"`
	ModeFreq      int    `json:"mode_freq"`
	LeastFrequent string `json:"least_frequent"`
	LeastFreq     int    `json:"least_freq"`
}

// GroupMean is the mean of one numeric column within one group.
type GroupMean struct {
	Column string         `json:"column"`
	Mean   jsonutil.Float `json:"mean"`
	Count  int            `json:"count"`
}

// Group is one category of the designated group-by column.
type Group struct {
	Key   string      `json:"key"`
	Size  int         `json:"size"`
	Means []GroupMean `json:"means"`
}

// GroupBy is the aggregation over the designated categorical column: the
// one with the fewest distinct values among those under the cap, which
// keeps the aggregation table small.
type GroupBy struct {
	Column string  `json:"column"`
	Groups []Group `json:"groups"`
}

// CorrMatrix is the pairwise-complete Pearson matrix over numeric columns.
// It is symmetric by construction with 1.0 on the diagonal by definition;
// undefined cells carry NaN and serialize as null.
type CorrMatrix struct {
	Columns []string           `json:"columns"`
	Values  [][]jsonutil.Float `json:"values"`
}

// At returns the correlation between named columns, or NaN.
func (m *CorrMatrix) At(a, b string) float64 {
	ai, bi := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ai = i
		}
		if c == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return math.NaN()
	}
	return float64(m.Values[ai][bi])
}

// Chart spec types. Specs describe charts; rendering is a collaborator's job.
const (
	ChartHistogram = "histogram"
	ChartBar       = "bar"
	ChartScatter   = "scatter"
)

// CategoryCount is one bar of a bar-chart spec.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ChartSpec describes one chart to derive from the analyzed table.
type ChartSpec struct {
	Type   string          `json:"type"`
	Column string          `json:"column,omitempty"` // histogram, bar
	X      string          `json:"x,omitempty"`      // scatter
	Y      string          `json:"y,omitempty"`      // scatter
	Bins   int             `json:"bins,omitempty"`   // histogram
	R      jsonutil.Float  `json:"r,omitempty"`      // scatter
	Counts []CategoryCount `json:"counts,omitempty"` // bar
}

// Summary is the immutable analysis output for one cleaned table. It is
// what chart generation and AI summarization consume; raw rows never leave
// the pipeline.
type Summary struct {
	Numeric     []NumericStats     `json:"descriptive_statistics"`
	Categorical []CategoricalStats `json:"categorical_statistics"`
	GroupBy     *GroupBy           `json:"groupby_aggregations,omitempty"`
	Correlation *CorrMatrix        `json:"correlation_matrix,omitempty"`
	Charts      []ChartSpec        `json:"chart_specs"`
}

// Analyze computes the descriptive statistics, group-by aggregation,
// correlation matrix and chart specs for a cleaned table. Derived outlier
// flag columns are excluded throughout. Degenerate inputs (single rows,
// zero variance, empty columns) degrade to NaN/empty, never to an error.
func Analyze(t *table.Table, cfg Config) *Summary {
	schema := cfg.Infer.Schema(t)

	var numericCols, categoricalCols []string
	for _, c := range t.Columns {
		if strings.HasSuffix(c.Name, clean.OutlierSuffix) {
			continue
		}
		switch schema[c.Name] {
		case infer.Numeric:
			numericCols = append(numericCols, c.Name)
		case infer.Categorical:
			categoricalCols = append(categoricalCols, c.Name)
		}
	}

	s := &Summary{}
	for _, name := range numericCols {
		s.Numeric = append(s.Numeric, describeNumeric(*t.Column(name)))
	}
	for _, name := range categoricalCols {
		s.Categorical = append(s.Categorical, describeCategorical(*t.Column(name)))
	}
	s.GroupBy = groupBy(t, numericCols, categoricalCols, cfg)
	s.Correlation = correlate(t, numericCols)
	s.Charts = deriveCharts(t, s, numericCols, cfg)
	return s
}

func describeNumeric(col table.Column) NumericStats {
	vals := numericValues(col)
	d := NumericStats{Name: col.Name, Count: len(vals)}
	if len(vals) == 0 {
		nan := jsonutil.Float(math.NaN())
		d.Mean, d.Std, d.Min, d.Q25, d.Median, d.Q75, d.Max = nan, nan, nan, nan, nan, nan, nan
		return d
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	d.Mean = jsonutil.Float(stats.Mean(vals))
	d.Std = jsonutil.Float(stats.SampleStd(vals))
	d.Min = jsonutil.Float(sorted[0])
	d.Q25 = jsonutil.Float(stats.Quantile(sorted, 0.25))
	d.Median = jsonutil.Float(stats.Quantile(sorted, 0.5))
	d.Q75 = jsonutil.Float(stats.Quantile(sorted, 0.75))
	d.Max = jsonutil.Float(sorted[len(sorted)-1])
	return d
}

func describeCategorical(col table.Column) CategoricalStats {
	counts, order := categoryCounts(col)
	d := CategoricalStats{Name: col.Name, Unique: len(order)}
	if len(order) == 0 {
		return d
	}
	for _, key := range order {
		d.Count += counts[key]
	}
	// order preserves first encounter, so scanning it resolves ties the
	// same way mode imputation does.
	for _, key := range order {
		if counts[key] > d.ModeFreq {
			d.Mode = key
			d.ModeFreq = counts[key]
		}
	}
	d.LeastFreq = d.ModeFreq + 1
	for _, key := range order {
		if counts[key] < d.LeastFreq {
			d.LeastFrequent = key
			d.LeastFreq = counts[key]
		}
	}
	return d
}

// groupBy aggregates numeric means per group of the designated categorical
// column: fewest distinct values wins, ties to the earlier column.
func groupBy(t *table.Table, numericCols, categoricalCols []string, cfg Config) *GroupBy {
	if len(numericCols) == 0 || len(categoricalCols) == 0 {
		return nil
	}

	designated := ""
	bestDistinct := cfg.Infer.CategoricalCap + 1
	for _, name := range categoricalCols {
		_, order := categoryCounts(*t.Column(name))
		if len(order) > 0 && len(order) < bestDistinct {
			designated = name
			bestDistinct = len(order)
		}
	}
	if designated == "" {
		return nil
	}

	keyCol := t.Column(designated)
	type acc struct {
		size int
		sum  map[string]float64
		cnt  map[string]int
	}
	groups := make(map[string]*acc)
	var order []string
	for i, v := range keyCol.Values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		g := groups[key]
		if g == nil {
			g = &acc{sum: make(map[string]float64), cnt: make(map[string]int)}
			groups[key] = g
			order = append(order, key)
		}
		g.size++
		for _, name := range numericCols {
			cell := t.Column(name).Values[i]
			if cell.Kind == table.KindNumber {
				g.sum[name] += cell.Num
				g.cnt[name]++
			}
		}
	}
	sort.Strings(order)

	out := &GroupBy{Column: designated}
	for _, key := range order {
		g := groups[key]
		grp := Group{Key: key, Size: g.size}
		for _, name := range numericCols {
			mean := math.NaN()
			if g.cnt[name] > 0 {
				mean = g.sum[name] / float64(g.cnt[name])
			}
			grp.Means = append(grp.Means, GroupMean{Column: name, Mean: jsonutil.Float(mean), Count: g.cnt[name]})
		}
		out.Groups = append(out.Groups, grp)
	}
	return out
}

// correlate builds the pairwise-complete correlation matrix: each pair uses
// only rows where both columns are non-missing, independently per pair.
func correlate(t *table.Table, numericCols []string) *CorrMatrix {
	if len(numericCols) < 2 {
		return nil
	}
	n := len(numericCols)
	m := &CorrMatrix{Columns: numericCols, Values: make([][]jsonutil.Float, n)}
	for i := range m.Values {
		m.Values[i] = make([]jsonutil.Float, n)
		m.Values[i][i] = 1.0 // by definition, not computed
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			xs, ys := pairwiseComplete(*t.Column(numericCols[i]), *t.Column(numericCols[j]))
			r := jsonutil.Float(stats.Pearson(xs, ys))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

func pairwiseComplete(a, b table.Column) (xs, ys []float64) {
	for i := range a.Values {
		if a.Values[i].Kind == table.KindNumber && b.Values[i].Kind == table.KindNumber {
			xs = append(xs, a.Values[i].Num)
			ys = append(ys, b.Values[i].Num)
		}
	}
	return xs, ys
}

// deriveCharts emits chart specifications: a histogram per numeric column,
// a bar chart per categorical column, and a scatter plot per strongly
// correlated numeric pair.
func deriveCharts(t *table.Table, s *Summary, numericCols []string, cfg Config) []ChartSpec {
	var specs []ChartSpec
	for _, d := range s.Numeric {
		if d.Count == 0 {
			continue
		}
		specs = append(specs, ChartSpec{
			Type:   ChartHistogram,
			Column: d.Name,
			Bins:   stats.SturgesBins(d.Count, cfg.HistogramBins),
		})
	}
	for _, d := range s.Categorical {
		if d.Count == 0 {
			continue
		}
		counts, order := categoryCounts(*t.Column(d.Name))
		bars := make([]CategoryCount, 0, len(order))
		for _, key := range order {
			bars = append(bars, CategoryCount{Value: key, Count: counts[key]})
		}
		specs = append(specs, ChartSpec{Type: ChartBar, Column: d.Name, Counts: bars})
	}
	if s.Correlation != nil {
		for i := 0; i < len(numericCols); i++ {
			for j := i + 1; j < len(numericCols); j++ {
				r := float64(s.Correlation.Values[i][j])
				if !math.IsNaN(r) && math.Abs(r) >= cfg.CorrThreshold {
					specs = append(specs, ChartSpec{
						Type: ChartScatter,
						X:    numericCols[i],
						Y:    numericCols[j],
						R:    jsonutil.Float(r),
					})
				}
			}
		}
	}
	return specs
}

func categoryCounts(col table.Column) (map[string]int, []string) {
	counts := make(map[string]int)
	var order []string
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}
	return counts, order
}

func numericValues(col table.Column) []float64 {
	vals := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if v.Kind == table.KindNumber {
			vals = append(vals, v.Num)
		}
	}
	return vals
}
