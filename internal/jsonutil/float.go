// Package jsonutil holds JSON encoding helpers shared by the analysis
// report types.
package jsonutil

import (
	"errors"
	"math"
	"strconv"
)

// Float is a float64 that marshals NaN and infinities as JSON null.
// Degenerate statistics (zero variance, undefined correlation) are carried
// as NaN internally and must surface as null, never as an encoding error.
type Float float64

// IsNull reports whether the value would serialize as null.
func (f Float) IsNull() bool {
	v := float64(f)
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if f.IsNull() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(f), 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errors.New("jsonutil: invalid float literal: " + string(data))
	}
	*f = Float(v)
	return nil
}
