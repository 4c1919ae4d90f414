// Package ingest turns uploaded CSV bytes into the tagged-value table
// model. It owns delimiter sniffing and per-cell parsing; transport and
// size limits belong to the HTTP layer.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tablewise/tablewise/internal/table"
)

// ErrEmptyFile marks input with no header row. Ingestion-level failures
// abort the whole request.
var ErrEmptyFile = errors.New("csv file is empty")

// missingSentinels are the strings that parse as missing, not as failed
// values. Compared case-insensitively after trimming.
var missingSentinels = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"nan":  {},
}

// timeLayouts are the common formats a datetime cell may arrive in.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
}

// Parse reads CSV bytes into a table. The first record is the header and
// fixes the column count: short rows are padded with missing cells, cells
// beyond the header width are dropped. A file with no header yields
// ErrEmptyFile; a header-only file yields a zero-row table.
func Parse(name string, data []byte) (*table.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	cols := make([]table.Column, len(header))
	for i, h := range header {
		cols[i] = table.Column{Name: strings.TrimSpace(h)}
	}

	row := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%s: read row %d: %w", name, row+1, err)
		}
		row++
		for i := range cols {
			if i < len(rec) {
				cols[i].Values = append(cols[i].Values, ParseCell(rec[i]))
			} else {
				cols[i].Values = append(cols[i].Values, table.Missing())
			}
		}
	}

	return table.New(cols)
}

// ParseCell classifies one raw cell into the tagged variant. Order:
// missing sentinel, bool, number, datetime, text.
func ParseCell(raw string) table.Value {
	s := strings.TrimSpace(raw)
	if _, ok := missingSentinels[strings.ToLower(s)]; ok {
		return table.Missing()
	}

	switch strings.ToLower(s) {
	case "true":
		return table.BoolVal(true)
	case "false":
		return table.BoolVal(false)
	}

	if f, ok := parseNumber(s); ok {
		return table.Num(f)
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.TimeVal(t)
		}
	}

	return table.Str(s)
}

// parseNumber accepts plain integers/floats plus common formatting:
// thousands commas and a trailing percent sign.
func parseNumber(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// sniffDelimiter picks the delimiter by counting candidates in the first
// line; comma wins ties.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best := ','
	bestCount := bytes.Count(line, []byte{','})
	for _, cand := range []byte{';', '\t'} {
		if n := bytes.Count(line, []byte{cand}); n > bestCount {
			best = rune(cand)
			bestCount = n
		}
	}
	return best
}
