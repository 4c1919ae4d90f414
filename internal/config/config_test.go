package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.Gemini.Model)
	assert.Equal(t, 0.5, cfg.Inference.CategoricalRatio)
	assert.Equal(t, 50, cfg.Inference.CategoricalCap)
	assert.Equal(t, 1.0, cfg.Cleaning.SkewCutoff)
	assert.Equal(t, 0.5, cfg.Analysis.CorrThreshold)
	assert.Equal(t, 10, cfg.Analysis.HistogramBins)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
store:
  backend: filesystem
  dir: /tmp/sessions
analysis:
  histogram_bins: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "filesystem", cfg.Store.Backend)
	assert.Equal(t, "/tmp/sessions", cfg.Store.Dir)
	assert.Equal(t, 20, cfg.Analysis.HistogramBins)
	// Untouched settings keep their defaults.
	assert.Equal(t, 0.5, cfg.Analysis.CorrThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Store.Backend = "redis" },
			wantErr: "unknown store backend",
		},
		{
			name: "filesystem without dir",
			mutate: func(c *Config) {
				c.Store.Backend = "filesystem"
				c.Store.Dir = ""
			},
			wantErr: "store.dir is required",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Store.Backend = "postgres" },
			wantErr: "store.postgres_dsn is required",
		},
		{
			name:    "ratio out of range",
			mutate:  func(c *Config) { c.Inference.CategoricalRatio = 1.5 },
			wantErr: "categorical_ratio",
		},
		{
			name:    "zero bins",
			mutate:  func(c *Config) { c.Analysis.HistogramBins = 0 },
			wantErr: "histogram_bins",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
