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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablewise/tablewise/internal/charts"
	"github.com/tablewise/tablewise/internal/config"
	"github.com/tablewise/tablewise/internal/genai"
	"github.com/tablewise/tablewise/internal/pipeline"
	"github.com/tablewise/tablewise/internal/server"
	"github.com/tablewise/tablewise/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := newStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var llm genai.LLMClient
		if cfg.Gemini.APIKey != "" {
			llm, err = genai.NewClient(ctx, genai.Config{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model}, logger)
			if err != nil {
				return fmt.Errorf("initializing Gemini client: %w", err)
			}
			defer llm.Close()
		} else {
			logger.Warn("no Gemini API key configured; commentary and query endpoints are disabled")
		}

		svc := pipeline.NewService(store, llm, charts.NewRenderer(store, logger), pipelineConfig(cfg), logger)
		srv := server.New(cfg.Server.Addr, svc, logger, cfg.Server.MaxUploadBytes)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
		}
		return nil
	},
}

// newStore builds the configured session store backend.
func newStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "filesystem":
		return session.NewFilesystemStore(cfg.Store.Dir)
	case "postgres":
		store, err := session.NewPostgresStore(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
