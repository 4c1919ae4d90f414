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
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tablewise/tablewise/internal/analyze"
	"github.com/tablewise/tablewise/internal/clean"
	"github.com/tablewise/tablewise/internal/config"
	"github.com/tablewise/tablewise/internal/infer"
	"github.com/tablewise/tablewise/internal/pipeline"
)

var (
	configPath   string
	geminiAPIKey string
)

var rootCmd = &cobra.Command{
	Use:   "tablewise",
	Short: "Upload, clean and analyze tabular CSV data",
	Long: `tablewise ingests CSV files, infers column semantics, merges
schema-identical tables, cleans the data and produces descriptive
statistics, correlations, charts and AI commentary.`,
}

// loadConfig reads the layered configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if geminiAPIKey != "" {
		cfg.Gemini.APIKey = geminiAPIKey
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return cfg, nil
}

// pipelineConfig maps the loaded configuration onto stage knobs.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	inferCfg := infer.Config{
		CategoricalRatio: cfg.Inference.CategoricalRatio,
		CategoricalCap:   cfg.Inference.CategoricalCap,
	}
	return pipeline.Config{
		Infer: inferCfg,
		Clean: clean.Config{Infer: inferCfg, SkewCutoff: cfg.Cleaning.SkewCutoff},
		Analyze: analyze.Config{
			Infer:         inferCfg,
			CorrThreshold: cfg.Analysis.CorrThreshold,
			HistogramBins: cfg.Analysis.HistogramBins,
		},
	}
}

// newLogger builds the process logger.
func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
}
