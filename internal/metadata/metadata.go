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
package metadata

import (
	"errors"

	"github.com/tablewise/tablewise/internal/infer"
	"github.com/tablewise/tablewise/internal/table"
)

// ErrNoColumns marks a malformed or empty table handed to Extract. This is
// an ingestion-level failure: the whole request fails with it.
var ErrNoColumns = errors.New("table has no columns")

// sampleValueLimit caps how many example values are kept per column.
const sampleValueLimit = 5

// ColumnMetadata summarizes one column of an ingested file.
type ColumnMetadata struct {
	Name         string             `json:"name"`
	InferredType infer.SemanticType `json:"inferred_type"`
	MissingCount int                `json:"missing_count"`
	SampleValues []string           `json:"sample_values"`
}

// TableMetadata summarizes one ingested file. It is created at ingestion,
// consumed by the schema merger and not retained afterwards.
type TableMetadata struct {
	SourceFilename string           `json:"source_filename"`
	RowCount       int              `json:"rows"`
	Columns        []ColumnMetadata `json:"columns"`
}

// Extract builds the metadata summary for a loaded table. Every column is
// visited exactly once; the missing count is exact and independent of the
// inferred type.
func Extract(t *table.Table, filename string, cfg infer.Config) (*TableMetadata, error) {
	if t == nil || t.NumCols() == 0 {
		return nil, ErrNoColumns
	}

	md := &TableMetadata{
		SourceFilename: filename,
		RowCount:       t.NumRows(),
		Columns:        make([]ColumnMetadata, 0, t.NumCols()),
	}
	for _, col := range t.Columns {
		cm := ColumnMetadata{
			Name:         col.Name,
			InferredType: cfg.Infer(col),
			MissingCount: col.MissingCount(),
			SampleValues: sampleValues(col),
		}
		md.Columns = append(md.Columns, cm)
	}
	return md, nil
}

// sampleValues returns up to sampleValueLimit non-missing values in row order.
func sampleValues(col table.Column) []string {
	samples := make([]string, 0, sampleValueLimit)
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		samples = append(samples, v.String())
		if len(samples) == sampleValueLimit {
			break
		}
	}
	return samples
}

// Schema returns the column name to inferred type mapping used for schema
// identity checks by the merger.
func (md *TableMetadata) Schema() map[string]infer.SemanticType {
	schema := make(map[string]infer.SemanticType, len(md.Columns))
	for _, c := range md.Columns {
		schema[c.Name] = c.InferredType
	}
	return schema
}
