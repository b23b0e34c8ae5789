package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"webpagegenie/internal/ai"
	"webpagegenie/internal/config"
	"webpagegenie/models"
)

func testConfig() *config.Config {
	return &config.Config{
		RetrievalK:      5,
		MaxFixAttempts:  3,
		EmbedTimeout:    time.Second,
		GenerateTimeout: time.Second,
		ValidateTimeout: time.Second,
		BaseURL:         "http://localhost:8080",
	}
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeStore struct {
	vectorCalls  int
	lexicalCalls int
}

func (s *fakeStore) VectorSearch(ctx context.Context, queryVec []float32, slug string, k int) ([]models.Chunk, error) {
	s.vectorCalls++
	return []models.Chunk{{Slug: "page", ChunkID: 0, Content: "header section"}}, nil
}

func (s *fakeStore) LexicalSearch(ctx context.Context, queryText, slug string, k int) ([]models.Chunk, error) {
	s.lexicalCalls++
	return []models.Chunk{{Slug: "page", ChunkID: 1, Content: "footer section"}}, nil
}

type fakeGenerator struct {
	calls   int
	answers []string
	err     error
}

func (g *fakeGenerator) GenerateHTML(ctx context.Context, systemPrompt, userPrompt string, editing bool) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	answer := g.answers[len(g.answers)-1]
	if g.calls < len(g.answers) {
		answer = g.answers[g.calls]
	}
	g.calls++
	return answer, nil
}

type fakeValidator struct {
	calls   int
	results []models.ValidationResult
}

func (v *fakeValidator) ValidatePage(ctx context.Context, url, html string) models.ValidationResult {
	result := v.results[len(v.results)-1]
	if v.calls < len(v.results) {
		result = v.results[v.calls]
	}
	v.calls++
	return result
}

type fakePages struct {
	exists bool
	writes []string
}

func (p *fakePages) Exists(slug string) bool { return p.exists }

func (p *fakePages) Read(slug string) (string, error) {
	return "<html><body><!-- keep me --><p>old</p></body></html>", nil
}

func (p *fakePages) Write(slug, html string) error {
	p.writes = append(p.writes, html)
	return nil
}

type fakeRuns struct {
	records []models.RunRecord
}

func (r *fakeRuns) Append(ctx context.Context, rec models.RunRecord) error {
	r.records = append(r.records, rec)
	return nil
}

type fakeNotifier struct {
	slugs []string
}

func (n *fakeNotifier) BroadcastReload(slug string) { n.slugs = append(n.slugs, slug) }

func okResult() models.ValidationResult {
	return models.ValidationResult{Status: models.ValidationOK, OK: true}
}

func errorResult(issues ...string) models.ValidationResult {
	return models.ValidationResult{Status: models.ValidationErrors, OK: false, ConsoleErrors: issues}
}

func newTestPipeline(gen *fakeGenerator, val *fakeValidator, pages *fakePages, runs *fakeRuns, notifier *fakeNotifier) (*Pipeline, *fakeStore) {
	store := &fakeStore{}
	return NewPipeline(testConfig(), fakeEmbedder{}, store, gen, val, pages, runs, notifier), store
}

func TestRunFirstPassSuccess(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"<html><body>new</body></html>"}}
	val := &fakeValidator{results: []models.ValidationResult{okResult()}}
	pages := &fakePages{}
	runs := &fakeRuns{}
	notifier := &fakeNotifier{}
	p, _ := newTestPipeline(gen, val, pages, runs, notifier)

	result, err := p.Run(context.Background(), Request{Question: "make it blue", PageSlug: "page"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("expected 1 generate call, got %d", gen.calls)
	}
	if result.Attempts != 0 {
		t.Fatalf("expected 0 retries, got %d", result.Attempts)
	}
	if !result.Saved || len(pages.writes) != 1 {
		t.Fatalf("expected one persisted page, saved=%v writes=%d", result.Saved, len(pages.writes))
	}
	if len(notifier.slugs) != 1 || notifier.slugs[0] != "page" {
		t.Fatalf("expected reload broadcast for page, got %v", notifier.slugs)
	}
	if len(runs.records) != 1 || !runs.records[0].OK {
		t.Fatalf("expected one successful run record, got %+v", runs.records)
	}
}

func TestRunRetryBound(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"<html><body>broken</body></html>"}}
	val := &fakeValidator{results: []models.ValidationResult{errorResult("TypeError: x is undefined")}}
	pages := &fakePages{}
	runs := &fakeRuns{}
	p, _ := newTestPipeline(gen, val, pages, runs, &fakeNotifier{})

	result, err := p.Run(context.Background(), Request{Question: "fix it", PageSlug: "page"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Ceiling of 3 retries means at most 4 generate calls, and the run
	// still terminates with the outstanding issues flagged.
	if gen.calls != 4 {
		t.Fatalf("expected 4 generate calls, got %d", gen.calls)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected 3 retries, got %d", result.Attempts)
	}
	if result.Validation == nil || !result.Validation.HasErrors() {
		t.Fatalf("expected outstanding validation errors in result")
	}
	if len(runs.records) != 1 || runs.records[0].OK {
		t.Fatalf("expected run record flagged not-ok, got %+v", runs.records)
	}
}

func TestRunNoHTMLNeverPersists(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Here is some advice, not a page."}}
	val := &fakeValidator{results: []models.ValidationResult{errorResult("should not run")}}
	pages := &fakePages{}
	p, _ := newTestPipeline(gen, val, pages, &fakeRuns{}, &fakeNotifier{})

	result, err := p.Run(context.Background(), Request{Question: "advise me", PageSlug: "page"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("expected 1 generate call, got %d", gen.calls)
	}
	if val.calls != 0 {
		t.Fatalf("validator must not run without an html document, got %d calls", val.calls)
	}
	if result.Saved || len(pages.writes) != 0 {
		t.Fatalf("nothing should be persisted, saved=%v writes=%d", result.Saved, len(pages.writes))
	}
}

func TestRunValidatorUnavailableTerminates(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"<html><body>page</body></html>"}}
	val := &fakeValidator{results: []models.ValidationResult{{
		Status:       models.ValidationUnavailable,
		OK:           false,
		StaticIssues: []string{"externally-hosted script: https://cdn.example.com/x.js"},
	}}}
	pages := &fakePages{}
	p, _ := newTestPipeline(gen, val, pages, &fakeRuns{}, &fakeNotifier{})

	result, err := p.Run(context.Background(), Request{Question: "edit", PageSlug: "page"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Unavailable browser means zero outstanding issues for the retry
	// loop: one generate, no retries, page still saved.
	if gen.calls != 1 {
		t.Fatalf("expected 1 generate call, got %d", gen.calls)
	}
	if result.Attempts != 0 {
		t.Fatalf("expected no retries, got %d", result.Attempts)
	}
	if !result.Saved {
		t.Fatalf("expected page to be saved")
	}
	if result.Validation == nil || result.Validation.Status != models.ValidationUnavailable {
		t.Fatalf("expected unavailable marker in result, got %+v", result.Validation)
	}
}

func TestRunRecoversAfterOneRetry(t *testing.T) {
	gen := &fakeGenerator{answers: []string{
		"<html><body>broken</body></html>",
		"<html><body>fixed</body></html>",
	}}
	val := &fakeValidator{results: []models.ValidationResult{
		errorResult("ReferenceError: boom"),
		okResult(),
	}}
	pages := &fakePages{}
	p, _ := newTestPipeline(gen, val, pages, &fakeRuns{}, &fakeNotifier{})

	result, err := p.Run(context.Background(), Request{Question: "fix", PageSlug: "page"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if gen.calls != 2 {
		t.Fatalf("expected 2 generate calls, got %d", gen.calls)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 retry, got %d", result.Attempts)
	}
	if len(pages.writes) != 2 {
		t.Fatalf("expected both passes persisted, got %d writes", len(pages.writes))
	}
	if result.Validation.HasErrors() {
		t.Fatalf("expected clean final validation")
	}
}

func TestRunUpstreamFailureAborts(t *testing.T) {
	upstream := &ai.UpstreamError{Provider: "gemini", Op: "generate", Err: errors.New("quota exceeded")}
	gen := &fakeGenerator{err: upstream}
	runs := &fakeRuns{}
	p, _ := newTestPipeline(gen, &fakeValidator{results: []models.ValidationResult{okResult()}},
		&fakePages{}, runs, &fakeNotifier{})

	_, err := p.Run(context.Background(), Request{Question: "edit", PageSlug: "page"})
	if err == nil {
		t.Fatalf("expected upstream error to abort the run")
	}
	if !ai.IsUpstream(err) {
		t.Fatalf("expected upstream error kind, got %v", err)
	}
	if len(runs.records) != 0 {
		t.Fatalf("aborted runs must not be recorded, got %d", len(runs.records))
	}
}

func TestRunHybridUsesBothSearches(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"plain text answer"}}
	p, store := newTestPipeline(gen, &fakeValidator{results: []models.ValidationResult{okResult()}},
		&fakePages{}, &fakeRuns{}, &fakeNotifier{})

	result, err := p.Run(context.Background(), Request{Question: "what is on the page", Method: models.RetrievalHybrid})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if store.vectorCalls != 1 || store.lexicalCalls != 1 {
		t.Fatalf("expected both searches once, got vector=%d lexical=%d", store.vectorCalls, store.lexicalCalls)
	}
	if len(result.Retrieved) != 2 {
		t.Fatalf("expected fused results from both lists, got %d", len(result.Retrieved))
	}
}

func TestRunEditModeKeepsDeveloperComments(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"<html><body><!--note:0--><p>new</p></body></html>"}}
	val := &fakeValidator{results: []models.ValidationResult{okResult()}}
	pages := &fakePages{exists: true}
	p, _ := newTestPipeline(gen, val, pages, &fakeRuns{}, &fakeNotifier{})

	if _, err := p.Run(context.Background(), Request{Question: "edit", PageSlug: "page"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(pages.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(pages.writes))
	}
	want := "<!-- keep me -->"
	if got := pages.writes[0]; !strings.Contains(got, want) {
		t.Fatalf("expected developer comment restored in %q", got)
	}
}
