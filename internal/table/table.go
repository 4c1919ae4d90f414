/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the tag of a cell value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
	KindTime
	KindBool
)

// Value is a tagged cell. Exactly one of the payload fields is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Time time.Time
	Bool bool
}

func Missing() Value            { return Value{Kind: KindMissing} }
func Num(f float64) Value       { return Value{Kind: KindNumber, Num: f} }
func Str(s string) Value        { return Value{Kind: KindText, Str: s} }
func TimeVal(t time.Time) Value { return Value{Kind: KindTime, Time: t} }
func BoolVal(b bool) Value      { return Value{Kind: KindBool, Bool: b} }

// IsMissing reports whether the cell carries no value.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String renders the cell for display, category keys and row identity.
// Missing cells render as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindText:
		return v.Str
	case KindTime:
		return v.Time.Format("2006-01-02T15:04:05")
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Equal reports value identity, used for joint-row deduplication.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindText:
		return v.Str == o.Str
	case KindTime:
		return v.Time.Equal(o.Time)
	case KindBool:
		return v.Bool == o.Bool
	default:
		return true
	}
}

// Column is a named sequence of cells of uniform length within a Table.
type Column struct {
	Name   string
	Values []Value
}

// MissingCount is the exact count of missing cells in the column.
func (c Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Table is an ordered sequence of named columns with a uniform row count.
// Pipeline stages treat a Table as immutable and derive new Tables.
type Table struct {
	Columns []Column
}

// New builds a table from columns, validating uniform row counts.
func New(cols []Column) (*Table, error) {
	if len(cols) > 1 {
		n := len(cols[0].Values)
		for _, c := range cols[1:] {
			if len(c.Values) != n {
				return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, len(c.Values), n)
			}
		}
	}
	return &Table{Columns: cols}, nil
}

func (t *Table) NumCols() int { return len(t.Columns) }

func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	if i := t.ColumnIndex(name); i >= 0 {
		return &t.Columns[i]
	}
	return nil
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i]
	}
	return row
}

// RowKey renders row i as a single string for joint-column identity checks.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for j, c := range t.Columns {
		if j > 0 {
			b.WriteByte(0x1f)
		}
		// Kind prefix keeps Text("true") distinct from Bool(true).
		b.WriteByte(byte('0' + c.Values[i].Kind))
		b.WriteString(c.Values[i].String())
	}
	return b.String()
}

// Clone returns a deep copy. Columns share no backing arrays with t.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		vals := make([]Value, len(c.Values))
		copy(vals, c.Values)
		cols[i] = Column{Name: c.Name, Values: vals}
	}
	return &Table{Columns: cols}
}
