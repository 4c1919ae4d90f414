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
package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tablewise/tablewise/internal/analyze"
	"github.com/tablewise/tablewise/internal/session"
	"github.com/tablewise/tablewise/internal/table"
)

type mockLLM struct {
	commentaryCalls int
	queryCalls      int
	lastSummary     string
	lastQuestion    string
	err             error
}

func (m *mockLLM) GenerateCommentary(ctx context.Context, summary string) (string, error) {
	m.commentaryCalls++
	m.lastSummary = summary
	if m.err != nil {
		return "", m.err
	}
	return "mock commentary", nil
}

func (m *mockLLM) AnswerQuestion(ctx context.Context, question, summary string) (string, error) {
	m.queryCalls++
	m.lastQuestion = question
	m.lastSummary = summary
	if m.err != nil {
		return "", m.err
	}
	return "mock answer", nil
}

func (m *mockLLM) IsAPIKeyValid(ctx context.Context) error { return nil }
func (m *mockLLM) Close() error                            { return nil }

type mockRenderer struct {
	calls int
}

func (m *mockRenderer) Render(ctx context.Context, sessionID, prefix string, t *table.Table, specs []analyze.ChartSpec) ([]string, error) {
	m.calls++
	return []string{prefix + "_chart.png"}, nil
}

func newTestService(t *testing.T) (*Service, session.Store, *mockLLM, *mockRenderer) {
	t.Helper()
	store := session.NewMemoryStore()
	llm := &mockLLM{}
	renderer := &mockRenderer{}
	svc := NewService(store, llm, renderer, DefaultConfig(), nil)
	return svc, store, llm, renderer
}

const peopleCSV = "name,age,city\nalice,30,berlin\nbob,40,berlin\ncarol,50,paris\n"

func TestUploadRejectsNonCSV(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.Upload(context.Background(), "", "data.txt", []byte("a,b\n1,2\n"))
	var ingestErr *ErrIngestion
	if !errors.As(err, &ingestErr) {
		t.Errorf("Upload(.txt) error = %v, want ErrIngestion", err)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.Upload(context.Background(), "", "empty.csv", nil)
	var ingestErr *ErrIngestion
	if !errors.As(err, &ingestErr) {
		t.Errorf("Upload(empty) error = %v, want ErrIngestion", err)
	}
}

func TestUploadCreatesSessionAndMetadata(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sid, md, err := svc.Upload(context.Background(), "", "people.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if sid == "" {
		t.Error("expected a new session ID")
	}
	if md.SourceFilename != "people.csv" || md.RowCount != 3 {
		t.Errorf("metadata = %+v", md)
	}

	// Second upload joins the same session.
	sid2, _, err := svc.Upload(context.Background(), sid, "more.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if sid2 != sid {
		t.Errorf("second upload created session %q, want %q", sid2, sid)
	}

	mds, err := svc.Metadata(context.Background(), sid)
	if err != nil {
		t.Fatalf("Metadata() error: %v", err)
	}
	if len(mds) != 2 {
		t.Errorf("got %d files, want 2", len(mds))
	}
}

func TestAnalyzeMergesIdenticalSchemas(t *testing.T) {
	svc, _, _, renderer := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if _, _, err := svc.Upload(ctx, sid, "b.csv", []byte(peopleCSV)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	r, err := svc.Analyze(ctx, sid)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if !r.Merged || len(r.Tables) != 1 {
		t.Fatalf("merged=%v tables=%d, want merged with 1 table", r.Merged, len(r.Tables))
	}
	tbl := r.Tables[0]
	if tbl.Name != "merged" {
		t.Errorf("table name = %q, want merged", tbl.Name)
	}
	if tbl.Analysis == nil || tbl.Cleaning == nil {
		t.Fatal("missing analysis or cleaning results")
	}
	if renderer.calls != 1 {
		t.Errorf("renderer calls = %d, want 1", renderer.calls)
	}
	if len(tbl.ChartURLs) != 1 || !strings.HasPrefix(tbl.ChartURLs[0], "/sessions/"+sid+"/charts/") {
		t.Errorf("chart URLs = %v", tbl.ChartURLs)
	}
}

func TestReuploadedFilenameKeepsAllRows(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "people.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	more := "name,age,city\ndave,60,rome\nerin,70,rome\n"
	if _, _, err := svc.Upload(ctx, sid, "people.csv", []byte(more)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	r, err := svc.Analyze(ctx, sid)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if !r.Merged || len(r.Tables) != 1 {
		t.Fatalf("merged=%v tables=%d, want merged with 1 table", r.Merged, len(r.Tables))
	}
	ageCount := -1
	for _, d := range r.Tables[0].Analysis.Numeric {
		if d.Name == "age" {
			ageCount = d.Count
		}
	}
	if ageCount != 5 {
		t.Errorf("age count = %d, want 5 (rows from both uploads)", ageCount)
	}

	// Metadata reports one entry per filename, the latest upload winning.
	mds, err := svc.Metadata(ctx, sid)
	if err != nil {
		t.Fatalf("Metadata() error: %v", err)
	}
	if len(mds) != 1 {
		t.Fatalf("metadata entries = %d, want 1", len(mds))
	}
	if mds[0].SourceFilename != "people.csv" || mds[0].RowCount != 2 {
		t.Errorf("metadata = %+v, want the second upload's 2 rows", mds[0])
	}
}

func TestAnalyzeSeparatesDifferingSchemas(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if _, _, err := svc.Upload(ctx, sid, "b.csv", []byte("product,price\nwidget,9.5\ngadget,19.5\n")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	r, err := svc.Analyze(ctx, sid)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if r.Merged || len(r.Tables) != 2 {
		t.Fatalf("merged=%v tables=%d, want 2 separate tables", r.Merged, len(r.Tables))
	}
	if r.Tables[0].Name != "a.csv" || r.Tables[1].Name != "b.csv" {
		t.Errorf("table names = %q, %q", r.Tables[0].Name, r.Tables[1].Name)
	}
}

func TestAnalyzeUnknownSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Analyze(context.Background(), "nope")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Analyze(unknown) error = %v, want ErrSessionNotFound", err)
	}
}

func TestAnalyzeEmptySession(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	sid, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	_, err = svc.Analyze(context.Background(), sid)
	var ingestErr *ErrIngestion
	if !errors.As(err, &ingestErr) {
		t.Errorf("Analyze(empty) error = %v, want ErrIngestion", err)
	}
}

func TestCommentaryIsCached(t *testing.T) {
	svc, _, llm, _ := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	first, err := svc.Commentary(ctx, sid)
	if err != nil {
		t.Fatalf("Commentary() error: %v", err)
	}
	second, err := svc.Commentary(ctx, sid)
	if err != nil {
		t.Fatalf("Commentary() error: %v", err)
	}
	if first != second || first != "mock commentary" {
		t.Errorf("commentary = %q / %q", first, second)
	}
	if llm.commentaryCalls != 1 {
		t.Errorf("model calls = %d, want 1 (cached)", llm.commentaryCalls)
	}
	if !strings.Contains(llm.lastSummary, "descriptive_statistics") {
		t.Error("prompt summary missing analysis content")
	}
}

func TestNewUploadInvalidatesCache(t *testing.T) {
	svc, _, llm, _ := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if _, err := svc.Commentary(ctx, sid); err != nil {
		t.Fatalf("Commentary() error: %v", err)
	}
	if _, _, err := svc.Upload(ctx, sid, "b.csv", []byte(peopleCSV)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if _, err := svc.Commentary(ctx, sid); err != nil {
		t.Fatalf("Commentary() error: %v", err)
	}
	if llm.commentaryCalls != 2 {
		t.Errorf("model calls = %d, want 2 after cache invalidation", llm.commentaryCalls)
	}
}

func TestCommentaryWithoutModel(t *testing.T) {
	store := session.NewMemoryStore()
	svc := NewService(store, nil, nil, DefaultConfig(), nil)
	sid, _, err := svc.Upload(context.Background(), "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	_, err = svc.Commentary(context.Background(), sid)
	var unavailable *ErrLLMUnavailable
	if !errors.As(err, &unavailable) {
		t.Errorf("Commentary() error = %v, want ErrLLMUnavailable", err)
	}
}

func TestQuery(t *testing.T) {
	svc, _, llm, _ := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	answer, err := svc.Query(ctx, sid, "what is the mean age?")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if answer != "mock answer" {
		t.Errorf("answer = %q", answer)
	}
	if llm.lastQuestion != "what is the mean age?" {
		t.Errorf("question passed = %q", llm.lastQuestion)
	}

	if _, err := svc.Query(ctx, sid, "  "); err == nil {
		t.Error("Query(empty question) should fail")
	}
}

func TestBuildReport(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	name, data, err := svc.BuildReport(ctx, sid)
	if err != nil {
		t.Fatalf("BuildReport() error: %v", err)
	}
	if !strings.HasSuffix(name, ".md") {
		t.Errorf("report name = %q", name)
	}
	if !strings.Contains(string(data), "# Data Analysis Report") {
		t.Error("report content missing title")
	}

	stored, err := store.Get(ctx, sid, session.KindArtifact, name)
	if err != nil {
		t.Fatalf("stored report missing: %v", err)
	}
	if string(stored) != string(data) {
		t.Error("stored report differs from returned bytes")
	}
}

func TestDeleteSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	sid, _, err := svc.Upload(ctx, "", "a.csv", []byte(peopleCSV))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if err := svc.DeleteSession(ctx, sid); err != nil {
		t.Fatalf("DeleteSession() error: %v", err)
	}
	if err := svc.DeleteSession(ctx, sid); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("second delete error = %v, want ErrSessionNotFound", err)
	}
}
