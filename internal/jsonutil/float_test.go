package jsonutil

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFloatMarshal(t *testing.T) {
	tests := []struct {
		name string
		in   Float
		want string
	}{
		{"plain", Float(1.5), "1.5"},
		{"integer", Float(3), "3"},
		{"nan", Float(math.NaN()), "null"},
		{"pos inf", Float(math.Inf(1)), "null"},
		{"neg inf", Float(math.Inf(-1)), "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestFloatUnmarshal(t *testing.T) {
	var f Float
	if err := json.Unmarshal([]byte("2.5"), &f); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if float64(f) != 2.5 {
		t.Errorf("got %v, want 2.5", float64(f))
	}

	if err := json.Unmarshal([]byte("null"), &f); err != nil {
		t.Fatalf("Unmarshal(null) error: %v", err)
	}
	if !math.IsNaN(float64(f)) {
		t.Errorf("got %v, want NaN", float64(f))
	}
}

func TestFloatInStruct(t *testing.T) {
	v := struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}{A: Float(1), B: Float(math.NaN())}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"a":1,"b":null}` {
		t.Errorf("Marshal() = %s", data)
	}
}
