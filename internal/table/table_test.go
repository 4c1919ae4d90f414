package table

import (
	"testing"
	"time"
)

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New([]Column{
		{Name: "a", Values: []Value{Num(1), Num(2)}},
		{Name: "b", Values: []Value{Str("x")}},
	})
	if err == nil {
		t.Fatal("expected error for mismatched column lengths")
	}
}

func TestValueString(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"missing", Missing(), ""},
		{"integer", Num(42), "42"},
		{"float", Num(3.5), "3.5"},
		{"text", Str("hello"), "hello"},
		{"time", TimeVal(ts), "2024-03-01T12:30:00"},
		{"bool", BoolVal(true), "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRowKeyDistinguishesKinds(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "a", Values: []Value{Num(1), Str("1"), BoolVal(true), Str("true")}},
	}}
	seen := make(map[string]int)
	for i := 0; i < tbl.NumRows(); i++ {
		key := tbl.RowKey(i)
		if prev, dup := seen[key]; dup {
			t.Errorf("rows %d and %d share key %q", prev, i, key)
		}
		seen[key] = i
	}
}

func TestRowKeyEqualForEqualRows(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "a", Values: []Value{Num(1), Num(1)}},
		{Name: "b", Values: []Value{Str("x"), Str("x")}},
	}}
	if tbl.RowKey(0) != tbl.RowKey(1) {
		t.Error("identical rows should share a key")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := &Table{Columns: []Column{
		{Name: "a", Values: []Value{Num(1), Num(2)}},
	}}
	cp := orig.Clone()
	cp.Columns[0].Values[0] = Num(99)
	if orig.Columns[0].Values[0].Num != 1 {
		t.Error("mutating the clone changed the original")
	}
}

func TestColumnLookup(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "a"}, {Name: "b"},
	}}
	if got := tbl.ColumnIndex("b"); got != 1 {
		t.Errorf("ColumnIndex(b) = %d, want 1", got)
	}
	if got := tbl.ColumnIndex("missing"); got != -1 {
		t.Errorf("ColumnIndex(missing) = %d, want -1", got)
	}
	if tbl.Column("missing") != nil {
		t.Error("Column(missing) should be nil")
	}
}
