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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tablewise/tablewise/internal/genai"
	"github.com/tablewise/tablewise/internal/pipeline"
	"github.com/tablewise/tablewise/internal/session"
)

var (
	analyzeOutFile    string
	analyzeCommentary bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze local CSV files and write a markdown report",
	Long: `analyze runs the full pipeline over local CSV files without the
HTTP server: ingestion, type inference, schema-aware merging, cleaning,
descriptive statistics and correlations. The markdown report is written
to --out.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		defer logger.Sync()

		ctx := cmd.Context()
		store := session.NewMemoryStore()
		defer store.Close()

		var llm genai.LLMClient
		if analyzeCommentary {
			if cfg.Gemini.APIKey == "" {
				return errors.New("--commentary requires a Gemini API key")
			}
			llm, err = genai.NewClient(ctx, genai.Config{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model}, logger)
			if err != nil {
				return fmt.Errorf("initializing Gemini client: %w", err)
			}
			defer llm.Close()
		}

		// Charts need a server to serve them; the offline report goes
		// without.
		svc := pipeline.NewService(store, llm, nil, pipelineConfig(cfg), logger)

		sessionID := ""
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			sessionID, _, err = svc.Upload(ctx, sessionID, filepath.Base(path), data)
			if err != nil {
				return err
			}
		}

		if analyzeCommentary {
			if _, err := svc.Commentary(ctx, sessionID); err != nil {
				return err
			}
		}
		_, report, err := svc.BuildReport(ctx, sessionID)
		if err != nil {
			return err
		}

		if err := os.WriteFile(analyzeOutFile, report, 0o644); err != nil {
			return fmt.Errorf("writing report to %s: %w", analyzeOutFile, err)
		}
		fmt.Printf("Report written to %s\n", analyzeOutFile)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutFile, "out", "report.md", "Output path for the markdown report")
	analyzeCmd.Flags().BoolVar(&analyzeCommentary, "commentary", false, "Include AI commentary (requires a Gemini API key)")
}
