package ingest

import (
	"errors"
	"testing"

	"github.com/tablewise/tablewise/internal/table"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		want table.Kind
	}{
		{"", table.KindMissing},
		{"NA", table.KindMissing},
		{"n/a", table.KindMissing},
		{"NULL", table.KindMissing},
		{"NaN", table.KindMissing},
		{"true", table.KindBool},
		{"FALSE", table.KindBool},
		{"42", table.KindNumber},
		{"-3.25", table.KindNumber},
		{"1,234.5", table.KindNumber},
		{"85%", table.KindNumber},
		{"2024-03-01", table.KindTime},
		{"2024-03-01 12:30:00", table.KindTime},
		{"hello", table.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseCell(tt.raw); got.Kind != tt.want {
				t.Errorf("ParseCell(%q).Kind = %v, want %v", tt.raw, got.Kind, tt.want)
			}
		})
	}
}

func TestParseCellValues(t *testing.T) {
	if v := ParseCell("1,234.5"); v.Num != 1234.5 {
		t.Errorf("thousands separator: got %v, want 1234.5", v.Num)
	}
	if v := ParseCell("85%"); v.Num != 85 {
		t.Errorf("percent: got %v, want 85", v.Num)
	}
	if v := ParseCell("  padded  "); v.Str != "padded" {
		t.Errorf("trim: got %q, want %q", v.Str, "padded")
	}
}

func TestParse(t *testing.T) {
	data := []byte("name,age,city\nalice,30,berlin\nbob,NA,paris\n")
	tbl, err := Parse("people.csv", data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if tbl.NumCols() != 3 || tbl.NumRows() != 2 {
		t.Fatalf("got %dx%d, want 3x2", tbl.NumCols(), tbl.NumRows())
	}
	age := tbl.Column("age")
	if age.Values[0].Kind != table.KindNumber || age.Values[0].Num != 30 {
		t.Errorf("age[0] = %+v, want number 30", age.Values[0])
	}
	if !age.Values[1].IsMissing() {
		t.Errorf("age[1] = %+v, want missing", age.Values[1])
	}
}

func TestParseSniffsSemicolon(t *testing.T) {
	data := []byte("a;b\n1;2\n")
	tbl, err := Parse("x.csv", data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if tbl.NumCols() != 2 {
		t.Fatalf("got %d columns, want 2", tbl.NumCols())
	}
	if v := tbl.Column("b").Values[0]; v.Num != 2 {
		t.Errorf("b[0] = %+v, want 2", v)
	}
}

func TestParsePadsRaggedRows(t *testing.T) {
	data := []byte("a,b,c\n1,2\n")
	tbl, err := Parse("x.csv", data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !tbl.Column("c").Values[0].IsMissing() {
		t.Error("short row should pad trailing columns with missing")
	}
}

func TestParseDropsCellsBeyondHeader(t *testing.T) {
	data := []byte("a,b\n1,2,3\n4,5\n")
	tbl, err := Parse("x.csv", data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if tbl.NumCols() != 2 || tbl.NumRows() != 2 {
		t.Fatalf("got %dx%d, want 2x2 (header fixes the width)", tbl.NumCols(), tbl.NumRows())
	}
	if v := tbl.Column("b").Values[0]; v.Num != 2 {
		t.Errorf("b[0] = %+v, want 2", v)
	}
}

func TestParseEmptyFile(t *testing.T) {
	_, err := Parse("empty.csv", nil)
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("Parse(empty) error = %v, want ErrEmptyFile", err)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	tbl, err := Parse("x.csv", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if tbl.NumRows() != 0 || tbl.NumCols() != 2 {
		t.Errorf("got %dx%d, want 2 columns and 0 rows", tbl.NumCols(), tbl.NumRows())
	}
}
