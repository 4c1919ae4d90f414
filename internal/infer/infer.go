package infer

import (
	"github.com/tablewise/tablewise/internal/table"
)

// SemanticType classifies a column by its content rather than any declared type.
type SemanticType string

const (
	Numeric     SemanticType = "numeric"
	Categorical SemanticType = "categorical"
	Datetime    SemanticType = "datetime"
	Text        SemanticType = "text"
)

// Config holds the categorical-vs-text heuristic knobs. The thresholds are
// heuristics, not hard contracts, so they stay configurable.
type Config struct {
	// CategoricalRatio is the maximum distinct/non-missing ratio for a
	// column to be considered categorical.
	CategoricalRatio float64
	// CategoricalCap is the absolute maximum number of distinct values
	// for a column to be considered categorical.
	CategoricalCap int
}

// DefaultConfig matches the source heuristics: ratio 0.5, cap 50.
func DefaultConfig() Config {
	return Config{CategoricalRatio: 0.5, CategoricalCap: 50}
}

// Infer classifies a column from its cell tag distribution. Precedence,
// first match wins: datetime, numeric, categorical, text. A column with no
// non-missing cells infers as text.
func (cfg Config) Infer(col table.Column) SemanticType {
	nonMissing := 0
	timeCnt := 0
	numCnt := 0
	distinct := make(map[string]struct{})

	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		nonMissing++
		switch v.Kind {
		case table.KindTime:
			timeCnt++
		case table.KindNumber:
			numCnt++
		}
		distinct[v.String()] = struct{}{}
	}

	if nonMissing == 0 {
		return Text
	}
	if timeCnt == nonMissing {
		return Datetime
	}
	if numCnt == nonMissing {
		return Numeric
	}
	ratio := float64(len(distinct)) / float64(nonMissing)
	if ratio < cfg.CategoricalRatio && len(distinct) < cfg.CategoricalCap {
		return Categorical
	}
	return Text
}

// Schema infers every column of a table, keyed by column name. The result
// is valid for the lifetime of the table snapshot it was computed from.
func (cfg Config) Schema(t *table.Table) map[string]SemanticType {
	schema := make(map[string]SemanticType, len(t.Columns))
	for _, c := range t.Columns {
		schema[c.Name] = cfg.Infer(c)
	}
	return schema
}
