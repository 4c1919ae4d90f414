package merge

import (
	"github.com/tablewise/tablewise/internal/infer"
	"github.com/tablewise/tablewise/internal/metadata"
	"github.com/tablewise/tablewise/internal/table"
)

// SourceColumn is the column added to each table when schemas differ.
// It is always appended as the last column.
const SourceColumn = "source_filename"

// Input pairs a loaded table with its ingestion metadata.
type Input struct {
	Table *table.Table
	Meta  *metadata.TableMetadata
}

// Entry is one table of a merge result with its originating filename.
// Source is empty for a merged table.
type Entry struct {
	Table  *table.Table
	Source string
}

// Result is either one concatenated table (Merged) or one entry per input,
// each tagged with its source filename.
type Result struct {
	Merged bool
	Tables []Entry
}

// Merge applies the binary merge policy: if every table's column-name set
// and inferred types match the first table's schema (order-independent),
// all rows are concatenated in the first table's column order. A single
// mismatch forces full separation with a source_filename column appended
// to every table. Schema mismatch is a supported branch, never an error.
func Merge(inputs []Input) *Result {
	if len(inputs) == 0 {
		return &Result{}
	}
	if len(inputs) == 1 {
		return &Result{Merged: true, Tables: []Entry{{Table: inputs[0].Table.Clone()}}}
	}

	reference := inputs[0].Meta.Schema()
	identical := true
	for _, in := range inputs[1:] {
		if !schemasEqual(reference, in.Meta.Schema()) {
			identical = false
			break
		}
	}

	if identical {
		return &Result{Merged: true, Tables: []Entry{{Table: concatenate(inputs)}}}
	}

	entries := make([]Entry, 0, len(inputs))
	for _, in := range inputs {
		entries = append(entries, Entry{
			Table:  withSourceColumn(in.Table, in.Meta.SourceFilename),
			Source: in.Meta.SourceFilename,
		})
	}
	return &Result{Merged: false, Tables: entries}
}

func schemasEqual(a, b map[string]infer.SemanticType) bool {
	if len(a) != len(b) {
		return false
	}
	for name, typ := range a {
		other, ok := b[name]
		if !ok || other != typ {
			return false
		}
	}
	return true
}

// concatenate appends every input's rows, preserving the first table's
// column order and each original row's values unchanged.
func concatenate(inputs []Input) *table.Table {
	first := inputs[0].Table
	total := 0
	for _, in := range inputs {
		total += in.Table.NumRows()
	}

	cols := make([]table.Column, len(first.Columns))
	for i, c := range first.Columns {
		vals := make([]table.Value, 0, total)
		for _, in := range inputs {
			src := in.Table.Column(c.Name)
			vals = append(vals, src.Values...)
		}
		cols[i] = table.Column{Name: c.Name, Values: vals}
	}
	return &table.Table{Columns: cols}
}

// withSourceColumn returns a copy of t with a source_filename column
// appended, populated with the originating filename for every row.
func withSourceColumn(t *table.Table, filename string) *table.Table {
	out := t.Clone()
	vals := make([]table.Value, t.NumRows())
	for i := range vals {
		vals[i] = table.Str(filename)
	}
	out.Columns = append(out.Columns, table.Column{Name: SourceColumn, Values: vals})
	return out
}
