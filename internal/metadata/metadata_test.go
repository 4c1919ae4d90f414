package metadata

import (
	"errors"
	"testing"

	"github.com/tablewise/tablewise/internal/infer"
	"github.com/tablewise/tablewise/internal/table"
)

func TestExtract(t *testing.T) {
	tbl := &table.Table{Columns: []table.Column{
		{Name: "age", Values: []table.Value{table.Num(30), table.Missing(), table.Num(41)}},
		{Name: "name", Values: []table.Value{table.Str("alice"), table.Str("bob"), table.Str("carol")}},
	}}

	md, err := Extract(tbl, "people.csv", infer.DefaultConfig())
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if md.SourceFilename != "people.csv" {
		t.Errorf("SourceFilename = %q", md.SourceFilename)
	}
	if md.RowCount != 3 {
		t.Errorf("RowCount = %d, want 3", md.RowCount)
	}
	if len(md.Columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(md.Columns))
	}

	age := md.Columns[0]
	if age.InferredType != infer.Numeric {
		t.Errorf("age type = %v, want numeric", age.InferredType)
	}
	if age.MissingCount != 1 {
		t.Errorf("age missing = %d, want 1", age.MissingCount)
	}
	if len(age.SampleValues) != 2 || age.SampleValues[0] != "30" {
		t.Errorf("age samples = %v", age.SampleValues)
	}
}

func TestExtractSampleLimit(t *testing.T) {
	vals := make([]table.Value, 20)
	for i := range vals {
		vals[i] = table.Num(float64(i))
	}
	tbl := &table.Table{Columns: []table.Column{{Name: "v", Values: vals}}}

	md, err := Extract(tbl, "x.csv", infer.DefaultConfig())
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if got := len(md.Columns[0].SampleValues); got != 5 {
		t.Errorf("sample count = %d, want 5", got)
	}
}

func TestExtractNoColumns(t *testing.T) {
	_, err := Extract(&table.Table{}, "x.csv", infer.DefaultConfig())
	if !errors.Is(err, ErrNoColumns) {
		t.Errorf("error = %v, want ErrNoColumns", err)
	}
	_, err = Extract(nil, "x.csv", infer.DefaultConfig())
	if !errors.Is(err, ErrNoColumns) {
		t.Errorf("error = %v, want ErrNoColumns", err)
	}
}

func TestSchema(t *testing.T) {
	md := &TableMetadata{Columns: []ColumnMetadata{
		{Name: "a", InferredType: infer.Numeric},
		{Name: "b", InferredType: infer.Text},
	}}
	schema := md.Schema()
	if schema["a"] != infer.Numeric || schema["b"] != infer.Text {
		t.Errorf("schema = %v", schema)
	}
}
