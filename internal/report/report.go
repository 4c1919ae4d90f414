// Package report assembles the per-session analysis results into the JSON
// payload returned by the API and the markdown report artifact.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tablewise/tablewise/internal/analyze"
	"github.com/tablewise/tablewise/internal/clean"
	"github.com/tablewise/tablewise/internal/metadata"
)

// promptByteLimit caps how much serialized analysis is handed to the
// language model in one prompt.
const promptByteLimit = 12000

// TableReport carries everything produced for one analyzed table. For a
// schema-identical merge there is exactly one; otherwise one per source
// file.
type TableReport struct {
	Name      string           `json:"name"`
	Cleaning  *clean.Report    `json:"cleaning"`
	Analysis  *analyze.Summary `json:"analysis"`
	ChartURLs []string         `json:"chart_urls,omitempty"`
}

// Report is the complete result for one session. Commentary covers every
// table at once since the model is prompted with the whole summary.
type Report struct {
	SessionID  string                   `json:"session_id"`
	Files      []metadata.TableMetadata `json:"files"`
	Merged     bool                     `json:"merged"`
	Tables     []TableReport            `json:"tables"`
	Commentary string                   `json:"commentary,omitempty"`
}

// PromptSummary serializes the analysis of every table into the compact
// text block the language model prompts are built from, truncated to a
// fixed budget.
func (r *Report) PromptSummary() string {
	var b strings.Builder
	for _, t := range r.Tables {
		fmt.Fprintf(&b, "## Table: %s\n", t.Name)
		if t.Cleaning != nil {
			writeJSONSection(&b, "Cleaning", t.Cleaning)
		}
		if t.Analysis != nil {
			writeJSONSection(&b, "Analysis", t.Analysis)
		}
	}
	s := b.String()
	if len(s) > promptByteLimit {
		cut := promptByteLimit
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "\n... (truncated)"
	}
	return s
}

func writeJSONSection(b *strings.Builder, title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(b, "### %s\n%s\n", title, data)
}

// Markdown renders the report as the downloadable markdown artifact.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Data Analysis Report\n\n")
	fmt.Fprintf(&b, "Session: `%s`\n\n", r.SessionID)

	b.WriteString("## Uploaded Files\n\n")
	b.WriteString("| File | Rows | Columns |\n|---|---|---|\n")
	for _, f := range r.Files {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", f.SourceFilename, f.RowCount, len(f.Columns))
	}
	b.WriteString("\n")
	if r.Merged {
		b.WriteString("Files shared an identical schema and were merged into a single table.\n\n")
	} else if len(r.Files) > 1 {
		b.WriteString("Files had differing schemas and were analyzed separately.\n\n")
	}

	for _, t := range r.Tables {
		writeTableSection(&b, t)
	}

	if r.Commentary != "" {
		b.WriteString("## AI Commentary\n\n")
		b.WriteString(strings.TrimSpace(r.Commentary))
		b.WriteString("\n")
	}
	return b.String()
}

func writeTableSection(b *strings.Builder, t TableReport) {
	fmt.Fprintf(b, "## %s\n\n", t.Name)

	if t.Cleaning != nil {
		b.WriteString("### Cleaning\n\n")
		if len(t.Cleaning.Imputations) == 0 {
			b.WriteString("No missing values imputed.\n")
		} else {
			b.WriteString("| Column | Strategy | Fill Value | Cells Filled |\n|---|---|---|---|\n")
			for _, imp := range t.Cleaning.Imputations {
				fmt.Fprintf(b, "| %s | %s | %s | %d |\n", imp.Column, imp.Strategy, imp.Value, imp.Count)
			}
		}
		if len(t.Cleaning.Unimputed) > 0 {
			fmt.Fprintf(b, "\nColumns left unimputed (fully missing): %s\n", strings.Join(t.Cleaning.Unimputed, ", "))
		}
		fmt.Fprintf(b, "\nDuplicate rows removed: %d\n\n", t.Cleaning.DuplicatesRemoved)
		if len(t.Cleaning.Outliers) > 0 {
			b.WriteString("| Column | Lower Bound | Upper Bound | Outliers |\n|---|---|---|---|\n")
			for _, o := range t.Cleaning.Outliers {
				fmt.Fprintf(b, "| %s | %s | %s | %d |\n", o.Column, fmtFloat(o.LowerBound), fmtFloat(o.UpperBound), o.Count)
			}
			b.WriteString("\n")
		}
	}

	if t.Analysis != nil {
		writeAnalysisSection(b, t.Analysis)
	}

	if len(t.ChartURLs) > 0 {
		b.WriteString("### Charts\n\n")
		for _, u := range t.ChartURLs {
			fmt.Fprintf(b, "- %s\n", u)
		}
		b.WriteString("\n")
	}
}

func writeAnalysisSection(b *strings.Builder, s *analyze.Summary) {
	if len(s.Numeric) > 0 {
		b.WriteString("### Numeric Columns\n\n")
		b.WriteString("| Column | Count | Mean | Std | Min | Q25 | Median | Q75 | Max |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
		for _, d := range s.Numeric {
			fmt.Fprintf(b, "| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				d.Name, d.Count,
				fmtFloat(float64(d.Mean)), fmtFloat(float64(d.Std)),
				fmtFloat(float64(d.Min)), fmtFloat(float64(d.Q25)),
				fmtFloat(float64(d.Median)), fmtFloat(float64(d.Q75)),
				fmtFloat(float64(d.Max)))
		}
		b.WriteString("\n")
	}

	if len(s.Categorical) > 0 {
		b.WriteString("### Categorical Columns\n\n")
		b.WriteString("| Column | Count | Unique | Mode | Mode Freq | Least Frequent | Least Freq |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, d := range s.Categorical {
			fmt.Fprintf(b, "| %s | %d | %d | %s | %d | %s | %d |\n",
				d.Name, d.Count, d.Unique, d.Mode, d.ModeFreq, d.LeastFrequent, d.LeastFreq)
		}
		b.WriteString("\n")
	}

	if s.GroupBy != nil && len(s.GroupBy.Groups) > 0 {
		fmt.Fprintf(b, "### Group Means by %s\n\n", s.GroupBy.Column)
		header := []string{s.GroupBy.Column, "size"}
		for _, m := range s.GroupBy.Groups[0].Means {
			header = append(header, m.Column)
		}
		fmt.Fprintf(b, "| %s |\n|%s\n", strings.Join(header, " | "), strings.Repeat("---|", len(header)))
		for _, g := range s.GroupBy.Groups {
			row := []string{g.Key, fmt.Sprintf("%d", g.Size)}
			for _, m := range g.Means {
				row = append(row, fmtFloat(float64(m.Mean)))
			}
			fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
		}
		b.WriteString("\n")
	}

	if s.Correlation != nil {
		b.WriteString("### Correlation Matrix\n\n")
		fmt.Fprintf(b, "| | %s |\n|%s\n", strings.Join(s.Correlation.Columns, " | "),
			strings.Repeat("---|", len(s.Correlation.Columns)+1))
		for i, name := range s.Correlation.Columns {
			row := []string{name}
			for j := range s.Correlation.Columns {
				row = append(row, fmtFloat(float64(s.Correlation.Values[i][j])))
			}
			fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
		}
		b.WriteString("\n")
	}
}

func fmtFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", f)
}
