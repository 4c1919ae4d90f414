package clean

import (
	"math"
	"strings"

	"github.com/tablewise/tablewise/internal/infer"
	"github.com/tablewise/tablewise/internal/stats"
	"github.com/tablewise/tablewise/internal/table"
)

// OutlierSuffix names the derived boolean flag column appended per numeric
// column. Downstream analysis skips columns carrying this suffix.
const OutlierSuffix = "_is_outlier"

// Config holds the cleaning knobs.
type Config struct {
	Infer infer.Config
	// SkewCutoff selects mean vs median imputation for numeric columns:
	// |skewness| <= cutoff imputes the mean, otherwise the median.
	SkewCutoff float64
}

// DefaultConfig uses the documented skewness cutoff of 1.0.
func DefaultConfig() Config {
	return Config{Infer: infer.DefaultConfig(), SkewCutoff: 1.0}
}

// Imputation records one column's missing-value fill.
type Imputation struct {
	Column   string `json:"column"`
	Strategy string `json:"strategy"` // "mean", "median" or "mode"
	Value    string `json:"value"`
	Count    int    `json:"count"`
}

// OutlierFlag records the IQR bounds applied to one numeric column.
type OutlierFlag struct {
	Column     string  `json:"column"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	Count      int     `json:"num_outliers"`
}

// Report describes what cleaning changed.
type Report struct {
	Imputations       []Imputation  `json:"imputations"`
	Unimputed         []string      `json:"unimputed,omitempty"` // 100%-missing columns left as-is
	DuplicatesRemoved int           `json:"duplicates_removed"`
	Outliers          []OutlierFlag `json:"outliers"`
}

// Clean derives a cleaned table in three fixed steps: missing-value
// imputation, joint-column duplicate removal (keeping the first occurrence
// by original row order), and per-numeric-column IQR outlier flagging.
// Values are never altered by flagging; flag columns only annotate.
// Clean never fails: degenerate columns are absorbed into the report.
func Clean(t *table.Table, cfg Config) (*table.Table, *Report) {
	report := &Report{}
	out := t.Clone()
	schema := cfg.Infer.Schema(out)

	imputeColumns(out, schema, cfg, report)
	out, report.DuplicatesRemoved = dropDuplicates(out)
	flagOutliers(out, schema, report)

	return out, report
}

// imputeColumns fills missing cells in place on the cloned table: numeric
// columns by mean or median depending on skewness, categorical columns by
// mode with ties broken by first encounter. Text and datetime columns keep
// their missing markers.
func imputeColumns(t *table.Table, schema map[string]infer.SemanticType, cfg Config, report *Report) {
	for i := range t.Columns {
		col := &t.Columns[i]
		missing := col.MissingCount()
		if missing == 0 {
			continue
		}
		if missing == len(col.Values) {
			// Nothing to impute from; downstream stats treat it as count=0.
			report.Unimputed = append(report.Unimputed, col.Name)
			continue
		}

		switch schema[col.Name] {
		case infer.Numeric:
			vals := numericValues(*col)
			strategy := "mean"
			fill := stats.Mean(vals)
			if math.Abs(stats.Skewness(vals)) > cfg.SkewCutoff {
				strategy = "median"
				fill = stats.Median(vals)
			}
			fillValue := table.Num(fill)
			fillMissing(col, fillValue)
			report.Imputations = append(report.Imputations, Imputation{
				Column: col.Name, Strategy: strategy, Value: fillValue.String(), Count: missing,
			})
		case infer.Categorical:
			fillValue := modeValue(*col)
			fillMissing(col, fillValue)
			report.Imputations = append(report.Imputations, Imputation{
				Column: col.Name, Strategy: "mode", Value: fillValue.String(), Count: missing,
			})
		}
	}
}

func fillMissing(col *table.Column, fill table.Value) {
	for i, v := range col.Values {
		if v.IsMissing() {
			col.Values[i] = fill
		}
	}
}

// modeValue returns the most frequent non-missing value; ties go to the
// value encountered first in original column order.
func modeValue(col table.Column) table.Value {
	counts := make(map[string]int)
	firstIndex := make(map[string]int)
	for i, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if _, seen := counts[key]; !seen {
			firstIndex[key] = i
		}
		counts[key]++
	}

	best := -1
	bestCount := 0
	for key, n := range counts {
		idx := firstIndex[key]
		if n > bestCount || (n == bestCount && idx < best) {
			best = idx
			bestCount = n
		}
	}
	return col.Values[best]
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

// dropDuplicates collapses rows identical across all columns to the first
// occurrence, preserving original row order.
func dropDuplicates(t *table.Table) (*table.Table, int) {
	rows := t.NumRows()
	seen := make(map[string]struct{}, rows)
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		key := t.RowKey(i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	if len(keep) == rows {
		return t, 0
	}

	cols := make([]table.Column, len(t.Columns))
	for j, c := range t.Columns {
		vals := make([]table.Value, 0, len(keep))
		for _, i := range keep {
			vals = append(vals, c.Values[i])
		}
		cols[j] = table.Column{Name: c.Name, Values: vals}
	}
	return &table.Table{Columns: cols}, rows - len(keep)
}

// flagOutliers appends (or overwrites, keeping cleaning idempotent) one
// boolean column per numeric column using the 1.5*IQR rule. A zero-IQR
// column flags every value not equal to the quartile value; that follows
// from the formula and is not special-cased.
func flagOutliers(t *table.Table, schema map[string]infer.SemanticType, report *Report) {
	numericNames := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if schema[c.Name] == infer.Numeric && !strings.HasSuffix(c.Name, OutlierSuffix) {
			numericNames = append(numericNames, c.Name)
		}
	}

	for _, name := range numericNames {
		col := t.Column(name)
		vals := numericValues(*col)
		if len(vals) == 0 {
			continue
		}
		_, _, lower, upper := stats.IQRBounds(vals)

		flags := make([]table.Value, len(col.Values))
		count := 0
		for i, v := range col.Values {
			outlier := v.Kind == table.KindNumber && (v.Num < lower || v.Num > upper)
			flags[i] = table.BoolVal(outlier)
			if outlier {
				count++
			}
		}

		flagName := name + OutlierSuffix
		if idx := t.ColumnIndex(flagName); idx >= 0 {
			t.Columns[idx].Values = flags
		} else {
			t.Columns = append(t.Columns, table.Column{Name: flagName, Values: flags})
		}
		report.Outliers = append(report.Outliers, OutlierFlag{
			Column: name, LowerBound: lower, UpperBound: upper, Count: count,
		})
	}
}
