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

// Package pipeline runs the upload-to-report flow: ingest, infer, merge,
// clean, analyze, chart, and summarize with a language model. It is the
// only package that touches the session store, the chart renderer and the
// model client together; the HTTP layer stays a thin shell around it.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tablewise/tablewise/internal/analyze"
	"github.com/tablewise/tablewise/internal/clean"
	"github.com/tablewise/tablewise/internal/genai"
	"github.com/tablewise/tablewise/internal/infer"
	"github.com/tablewise/tablewise/internal/ingest"
	"github.com/tablewise/tablewise/internal/merge"
	"github.com/tablewise/tablewise/internal/metadata"
	"github.com/tablewise/tablewise/internal/report"
	"github.com/tablewise/tablewise/internal/session"
	"github.com/tablewise/tablewise/internal/table"
	"github.com/tablewise/tablewise/internal/utils"
)

// analysisArtifact names the cached analysis result inside a session.
const analysisArtifact = "analysis.json"

// mergedTableName labels the single table of a schema-identical merge.
const mergedTableName = "merged"

// Config bundles the knobs of every pipeline stage.
type Config struct {
	Infer   infer.Config
	Clean   clean.Config
	Analyze analyze.Config
}

// DefaultConfig wires the documented defaults through all stages.
func DefaultConfig() Config {
	inferCfg := infer.DefaultConfig()
	cleanCfg := clean.DefaultConfig()
	cleanCfg.Infer = inferCfg
	analyzeCfg := analyze.DefaultConfig()
	analyzeCfg.Infer = inferCfg
	return Config{Infer: inferCfg, Clean: cleanCfg, Analyze: analyzeCfg}
}

// ChartRenderer renders chart specs into PNG artifacts stored under the
// session, returning the artifact names.
type ChartRenderer interface {
	Render(ctx context.Context, sessionID, prefix string, t *table.Table, specs []analyze.ChartSpec) ([]string, error)
}

// Service is the application core behind the HTTP handlers and the CLI.
type Service struct {
	store  session.Store
	llm    genai.LLMClient
	charts ChartRenderer
	cfg    Config
	retry  RetryOptions
	logger *zap.Logger
}

// NewService wires the pipeline. llm and charts may be nil; the dependent
// operations then fail with a typed error instead of at startup.
func NewService(store session.Store, llm genai.LLMClient, charts ChartRenderer, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		llm:    llm,
		charts: charts,
		cfg:    cfg,
		retry:  DefaultRetryOptions,
		logger: logger,
	}
}

// Upload validates and stores one CSV file. An empty sessionID allocates a
// new session. The file is parsed immediately so malformed input is
// rejected at upload time, and the returned metadata reflects what the
// analysis will see.
func (s *Service) Upload(ctx context.Context, sessionID, filename string, data []byte) (string, *metadata.TableMetadata, error) {
	safe, err := utils.SanitizeFilename(filename)
	if err != nil {
		return "", nil, &ErrIngestion{Msg: "rejecting upload", Err: err}
	}
	if !utils.IsCSVFilename(safe) {
		return "", nil, &ErrIngestion{Msg: "rejecting upload", Err: fmt.Errorf("only .csv files are accepted, got %q", safe)}
	}

	t, err := ingest.Parse(safe, data)
	if err != nil {
		return "", nil, &ErrIngestion{Msg: "parsing " + safe, Err: err}
	}
	md, err := metadata.Extract(t, safe, s.cfg.Infer)
	if err != nil {
		return "", nil, &ErrIngestion{Msg: "extracting metadata for " + safe, Err: err}
	}

	if sessionID == "" {
		sessionID, err = s.store.Create(ctx)
		if err != nil {
			return "", nil, &ErrStore{Msg: "creating session", Err: err}
		}
	}
	existing, err := s.store.List(ctx, sessionID, session.KindUpload)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return "", nil, err
		}
		return "", nil, &ErrStore{Msg: "listing uploads", Err: err}
	}
	// Uploads are stored under a sequence-prefixed name so re-uploading a
	// filename never overwrites earlier rows; every upload's rows survive
	// into the merge.
	blob := uploadBlobName(len(existing)+1, safe)
	if err := s.store.Put(ctx, sessionID, session.KindUpload, blob, data); err != nil {
		return "", nil, &ErrStore{Msg: "storing upload " + safe, Err: err}
	}

	// A new upload invalidates any cached analysis.
	s.invalidateAnalysis(ctx, sessionID)

	s.logger.Info("stored upload",
		zap.String("session_id", sessionID),
		zap.String("file", safe),
		zap.Int("rows", md.RowCount),
		zap.Int("columns", len(md.Columns)))
	return sessionID, md, nil
}

// Metadata returns the per-file metadata for every upload in the session.
// Files are re-parsed from the stored bytes; nothing is cached between
// requests, which keeps the store the single source of truth. When a
// filename was uploaded more than once, the latest upload's metadata is
// reported for it; all uploads still feed the analysis.
func (s *Service) Metadata(ctx context.Context, sessionID string) ([]metadata.TableMetadata, error) {
	inputs, err := s.loadInputs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var order []string
	latest := make(map[string]*metadata.TableMetadata)
	for _, in := range inputs {
		name := in.Meta.SourceFilename
		if _, seen := latest[name]; !seen {
			order = append(order, name)
		}
		latest[name] = in.Meta
	}
	out := make([]metadata.TableMetadata, 0, len(order))
	for _, name := range order {
		out = append(out, *latest[name])
	}
	return out, nil
}

// Analyze runs the full pipeline over the session's uploads and caches the
// result as an artifact. Charts are rendered when a renderer is wired;
// chart failures degrade to a report without charts, never to an error.
func (s *Service) Analyze(ctx context.Context, sessionID string) (*report.Report, error) {
	inputs, err := s.loadInputs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &ErrIngestion{Msg: "analyzing session", Err: errors.New("no files uploaded")}
	}

	merged := merge.Merge(inputs)
	r := &report.Report{SessionID: sessionID, Merged: merged.Merged}
	for _, in := range inputs {
		r.Files = append(r.Files, *in.Meta)
	}

	for _, entry := range merged.Tables {
		name := entry.Source
		if name == "" {
			name = mergedTableName
		}
		cleaned, cleaningReport := clean.Clean(entry.Table, s.cfg.Clean)
		summary := analyze.Analyze(cleaned, s.cfg.Analyze)

		tr := report.TableReport{Name: name, Cleaning: cleaningReport, Analysis: summary}
		if s.charts != nil {
			names, err := s.charts.Render(ctx, sessionID, name, cleaned, summary.Charts)
			if err != nil {
				s.logger.Warn("chart rendering failed",
					zap.String("session_id", sessionID),
					zap.String("table", name),
					zap.Error(err))
			}
			for _, n := range names {
				tr.ChartURLs = append(tr.ChartURLs, chartURL(sessionID, n))
			}
		}
		r.Tables = append(r.Tables, tr)
	}

	if err := s.saveReport(ctx, sessionID, r); err != nil {
		return nil, err
	}
	s.logger.Info("analysis complete",
		zap.String("session_id", sessionID),
		zap.Int("files", len(inputs)),
		zap.Bool("merged", merged.Merged),
		zap.Int("tables", len(r.Tables)))
	return r, nil
}

// Commentary generates (or returns cached) model commentary on the
// session's analysis, running the analysis first if needed.
func (s *Service) Commentary(ctx context.Context, sessionID string) (string, error) {
	if s.llm == nil {
		return "", &ErrLLMUnavailable{Msg: "no API key configured"}
	}
	r, err := s.loadOrAnalyze(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if r.Commentary != "" {
		return r.Commentary, nil
	}

	summary := r.PromptSummary()
	text, err := withRetry(ctx, s.retry, s.logger, func(ctx context.Context) (string, error) {
		return s.llm.GenerateCommentary(ctx, summary)
	})
	if err != nil {
		return "", &ErrLLM{Msg: "generating commentary", Err: err}
	}

	r.Commentary = text
	if err := s.saveReport(ctx, sessionID, r); err != nil {
		return "", err
	}
	return text, nil
}

// Query answers a free-form question about the session's analysis. Answers
// are grounded in the analysis summary only.
func (s *Service) Query(ctx context.Context, sessionID, question string) (string, error) {
	if s.llm == nil {
		return "", &ErrLLMUnavailable{Msg: "no API key configured"}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &ErrIngestion{Msg: "answering question", Err: errors.New("question is empty")}
	}
	r, err := s.loadOrAnalyze(ctx, sessionID)
	if err != nil {
		return "", err
	}

	summary := r.PromptSummary()
	answer, err := withRetry(ctx, s.retry, s.logger, func(ctx context.Context) (string, error) {
		return s.llm.AnswerQuestion(ctx, question, summary)
	})
	if err != nil {
		return "", &ErrLLM{Msg: "answering question", Err: err}
	}
	return answer, nil
}

// BuildReport renders the session's markdown report, stores it as an
// artifact and returns its name with the rendered bytes.
func (s *Service) BuildReport(ctx context.Context, sessionID string) (string, []byte, error) {
	r, err := s.loadOrAnalyze(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	name := utils.DefaultReportName(sessionID)
	data := []byte(r.Markdown())
	if err := s.store.Put(ctx, sessionID, session.KindArtifact, name, data); err != nil {
		return "", nil, &ErrStore{Msg: "storing report " + name, Err: err}
	}
	s.logger.Info("report built", zap.String("session_id", sessionID), zap.String("artifact", name))
	return name, data, nil
}

// DeleteSession removes the session with all its uploads and artifacts.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return err
		}
		return &ErrStore{Msg: "deleting session", Err: err}
	}
	s.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Artifact reads a stored artifact (chart PNG or report) by name.
func (s *Service) Artifact(ctx context.Context, sessionID, name string) ([]byte, error) {
	safe, err := utils.SanitizeFilename(name)
	if err != nil {
		return nil, &ErrIngestion{Msg: "reading artifact", Err: err}
	}
	data, err := s.store.Get(ctx, sessionID, session.KindArtifact, safe)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrBlobNotFound) {
			return nil, err
		}
		return nil, &ErrStore{Msg: "reading artifact " + safe, Err: err}
	}
	return data, nil
}

func (s *Service) loadInputs(ctx context.Context, sessionID string) ([]merge.Input, error) {
	names, err := s.store.List(ctx, sessionID, session.KindUpload)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, err
		}
		return nil, &ErrStore{Msg: "listing uploads", Err: err}
	}

	inputs := make([]merge.Input, 0, len(names))
	for _, name := range names {
		data, err := s.store.Get(ctx, sessionID, session.KindUpload, name)
		if err != nil {
			return nil, &ErrStore{Msg: "reading upload " + name, Err: err}
		}
		display := uploadDisplayName(name)
		t, err := ingest.Parse(display, data)
		if err != nil {
			return nil, &ErrIngestion{Msg: "parsing " + display, Err: err}
		}
		md, err := metadata.Extract(t, display, s.cfg.Infer)
		if err != nil {
			return nil, &ErrIngestion{Msg: "extracting metadata for " + display, Err: err}
		}
		inputs = append(inputs, merge.Input{Table: t, Meta: md})
	}
	return inputs, nil
}

// uploadBlobName keys a stored upload by its sequence within the session,
// keeping re-uploads of the same filename distinct in the store.
func uploadBlobName(seq int, filename string) string {
	return fmt.Sprintf("%04d_%s", seq, filename)
}

// uploadDisplayName strips the sequence prefix back off a stored upload
// name.
func uploadDisplayName(blob string) string {
	if i := strings.IndexByte(blob, '_'); i > 0 {
		if _, err := strconv.Atoi(blob[:i]); err == nil {
			return blob[i+1:]
		}
	}
	return blob
}

// loadOrAnalyze returns the cached analysis artifact, running the pipeline
// when no cache exists yet.
func (s *Service) loadOrAnalyze(ctx context.Context, sessionID string) (*report.Report, error) {
	data, err := s.store.Get(ctx, sessionID, session.KindArtifact, analysisArtifact)
	if err != nil {
		if errors.Is(err, session.ErrBlobNotFound) {
			return s.Analyze(ctx, sessionID)
		}
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, err
		}
		return nil, &ErrStore{Msg: "reading cached analysis", Err: err}
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		s.logger.Warn("cached analysis is unreadable, recomputing",
			zap.String("session_id", sessionID), zap.Error(err))
		return s.Analyze(ctx, sessionID)
	}
	return &r, nil
}

func (s *Service) saveReport(ctx context.Context, sessionID string, r *report.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return &ErrStore{Msg: "encoding analysis", Err: err}
	}
	if err := s.store.Put(ctx, sessionID, session.KindArtifact, analysisArtifact, data); err != nil {
		return &ErrStore{Msg: "caching analysis", Err: err}
	}
	return nil
}

func (s *Service) invalidateAnalysis(ctx context.Context, sessionID string) {
	// Overwrite with nothing is not supported by the store contract, so the
	// stale marker is an empty blob; loadOrAnalyze treats it as unreadable
	// and recomputes.
	if err := s.store.Put(ctx, sessionID, session.KindArtifact, analysisArtifact, nil); err != nil {
		s.logger.Warn("failed to invalidate cached analysis",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

func chartURL(sessionID, artifact string) string {
	return fmt.Sprintf("/sessions/%s/charts/%s", sessionID, artifact)
}
