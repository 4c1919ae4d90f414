package utils

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "data.csv", "data.csv", false},
		{"spaces trimmed", "  data.csv  ", "data.csv", false},
		{"inner space kept", "my data.csv", "my data.csv", false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
		{"parent", "../evil.csv", "", true},
		{"separator", "a/b.csv", "", true},
		{"backslash", `a\b.csv`, "", true},
		{"shell chars", "a;rm.csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFilename(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsCSVFilename(t *testing.T) {
	if !IsCSVFilename("Data.CSV") {
		t.Error("extension check must be case-insensitive")
	}
	if IsCSVFilename("data.txt") {
		t.Error("non-csv extension accepted")
	}
}
