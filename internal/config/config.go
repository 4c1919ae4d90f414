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
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Inference InferenceConfig `mapstructure:"inference"`
	Cleaning  CleaningConfig  `mapstructure:"cleaning"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// StoreConfig selects and configures the session store backend
type StoreConfig struct {
	// Backend is one of "memory", "filesystem" or "postgres".
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// GeminiConfig holds the language model settings
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// InferenceConfig holds the semantic type inference thresholds
type InferenceConfig struct {
	CategoricalRatio float64 `mapstructure:"categorical_ratio"`
	CategoricalCap   int     `mapstructure:"categorical_cap"`
}

// CleaningConfig holds the cleaning thresholds
type CleaningConfig struct {
	SkewCutoff float64 `mapstructure:"skew_cutoff"`
}

// AnalysisConfig holds the analysis thresholds
type AnalysisConfig struct {
	CorrThreshold float64 `mapstructure:"corr_threshold"`
	HistogramBins int     `mapstructure:"histogram_bins"`
}

// Load reads configuration from an optional YAML file and TABLEWISE_*
// environment variables layered over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_bytes", int64(32<<20))
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.dir", "./sessions")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash-latest")
	v.SetDefault("inference.categorical_ratio", 0.5)
	v.SetDefault("inference.categorical_cap", 50)
	v.SetDefault("cleaning.skew_cutoff", 1.0)
	v.SetDefault("analysis.corr_threshold", 0.5)
	v.SetDefault("analysis.histogram_bins", 10)

	v.SetEnvPrefix("TABLEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "filesystem":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the filesystem backend")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Inference.CategoricalRatio <= 0 || c.Inference.CategoricalRatio > 1 {
		return fmt.Errorf("inference.categorical_ratio must be in (0, 1], got %v", c.Inference.CategoricalRatio)
	}
	if c.Inference.CategoricalCap < 1 {
		return fmt.Errorf("inference.categorical_cap must be positive, got %d", c.Inference.CategoricalCap)
	}
	if c.Analysis.HistogramBins < 1 {
		return fmt.Errorf("analysis.histogram_bins must be positive, got %d", c.Analysis.HistogramBins)
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	return nil
}
