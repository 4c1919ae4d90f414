package report

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tablewise/tablewise/internal/analyze"
	"github.com/tablewise/tablewise/internal/clean"
	"github.com/tablewise/tablewise/internal/jsonutil"
	"github.com/tablewise/tablewise/internal/metadata"
)

func sampleReport() *Report {
	return &Report{
		SessionID: "abc-123",
		Files: []metadata.TableMetadata{
			{SourceFilename: "people.csv", RowCount: 4, Columns: []metadata.ColumnMetadata{{Name: "age"}}},
		},
		Merged: true,
		Tables: []TableReport{{
			Name: "merged",
			Cleaning: &clean.Report{
				Imputations: []clean.Imputation{
					{Column: "age", Strategy: "mean", Value: "30", Count: 1},
				},
				DuplicatesRemoved: 2,
				Outliers: []clean.OutlierFlag{
					{Column: "age", LowerBound: -1, UpperBound: 7, Count: 1},
				},
			},
			Analysis: &analyze.Summary{
				Numeric: []analyze.NumericStats{{
					Name: "age", Count: 4,
					Mean:   jsonutil.Float(30),
					Std:    jsonutil.Float(math.NaN()),
					Min:    jsonutil.Float(10),
					Q25:    jsonutil.Float(20),
					Median: jsonutil.Float(30),
					Q75:    jsonutil.Float(40),
					Max:    jsonutil.Float(50),
				}},
				Categorical: []analyze.CategoricalStats{{
					Name: "city", Count: 4, Unique: 2, Mode: "berlin", ModeFreq: 3,
					LeastFrequent: "paris", LeastFreq: 1,
				}},
			},
			ChartURLs: []string{"/sessions/abc-123/charts/merged_age_histogram.png"},
		}},
		Commentary: "Ages cluster around 30.",
	}
}

func TestMarkdownSections(t *testing.T) {
	md := sampleReport().Markdown()

	wantFragments := []string{
		"# Data Analysis Report",
		"`abc-123`",
		"| people.csv | 4 | 1 |",
		"merged into a single table",
		"### Cleaning",
		"| age | mean | 30 | 1 |",
		"Duplicate rows removed: 2",
		"### Numeric Columns",
		"### Categorical Columns",
		"| city | 4 | 2 | berlin | 3 | paris | 1 |",
		"### Charts",
		"merged_age_histogram.png",
		"## AI Commentary",
		"Ages cluster around 30.",
	}
	for _, want := range wantFragments {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownRendersNaNAsNA(t *testing.T) {
	md := sampleReport().Markdown()
	if strings.Contains(md, "NaN") {
		t.Error("NaN leaked into markdown output")
	}
	if !strings.Contains(md, "n/a") {
		t.Error("undefined statistics should render as n/a")
	}
}

func TestPromptSummaryContainsAnalysis(t *testing.T) {
	s := sampleReport().PromptSummary()
	if !strings.Contains(s, "## Table: merged") {
		t.Error("prompt summary missing table heading")
	}
	if !strings.Contains(s, "descriptive_statistics") {
		t.Error("prompt summary missing serialized analysis")
	}
}

func TestPromptSummaryTruncates(t *testing.T) {
	r := sampleReport()
	// Inflate the cleaning report far past the prompt budget.
	for i := 0; i < 5000; i++ {
		r.Tables[0].Cleaning.Imputations = append(r.Tables[0].Cleaning.Imputations,
			clean.Imputation{Column: "padding_column_with_a_long_name", Strategy: "mode", Value: "x"})
	}

	s := r.PromptSummary()
	if len(s) > promptByteLimit+100 {
		t.Errorf("prompt summary length = %d, want about %d", len(s), promptByteLimit)
	}
	if !strings.HasSuffix(s, "(truncated)") {
		t.Error("truncated summary should be marked")
	}
}

func TestPromptSummaryTruncatesOnRuneBoundary(t *testing.T) {
	r := sampleReport()
	// Multi-byte category values make every possible cut point land
	// inside a rune unless the truncation backs off.
	for i := 0; i < 5000; i++ {
		r.Tables[0].Cleaning.Imputations = append(r.Tables[0].Cleaning.Imputations,
			clean.Imputation{Column: "città", Strategy: "mode", Value: "京都京都京都"})
	}

	s := r.PromptSummary()
	if !strings.HasSuffix(s, "(truncated)") {
		t.Fatal("truncated summary should be marked")
	}
	if !utf8.ValidString(s) {
		t.Error("truncation split a multi-byte rune")
	}
}
