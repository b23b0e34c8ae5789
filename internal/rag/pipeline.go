package rag

import (
	"context"
	"strings"
	"time"

	"webpagegenie/internal/config"
	"webpagegenie/internal/logger"
	"webpagegenie/internal/minify"
	"webpagegenie/internal/vectorstore"
	"webpagegenie/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Embedder embeds the question for vector retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces HTML/text from assembled prompts.
type Generator interface {
	GenerateHTML(ctx context.Context, systemPrompt, userPrompt string, editing bool) (string, error)
}

// SearchStore is the retrieval surface of the vector store.
type SearchStore interface {
	VectorSearch(ctx context.Context, queryVec []float32, slug string, k int) ([]models.Chunk, error)
	LexicalSearch(ctx context.Context, queryText, slug string, k int) ([]models.Chunk, error)
}

// Validator checks a persisted page in a headless browser.
type Validator interface {
	ValidatePage(ctx context.Context, url, html string) models.ValidationResult
}

// PageWriter persists generated documents, versioning every overwrite.
type PageWriter interface {
	Exists(slug string) bool
	Read(slug string) (string, error)
	Write(slug, html string) error
}

// RunSink appends one audit record per pipeline invocation.
type RunSink interface {
	Append(ctx context.Context, rec models.RunRecord) error
}

// Notifier pushes live-reload events after a page write.
type Notifier interface {
	BroadcastReload(slug string)
}

// Pipeline sequences Retrieve -> Generate -> Validate with a bounded
// retry loop on validation errors. Provider failures are never retried
// here; they abort the run. Validation findings are the only condition
// that loops back to Generate.
type Pipeline struct {
	cfg       *config.Config
	embedder  Embedder
	store     SearchStore
	generator Generator
	validator Validator
	pages     PageWriter
	runs      RunSink
	notifier  Notifier
}

func NewPipeline(cfg *config.Config, embedder Embedder, store SearchStore, generator Generator,
	validator Validator, pages PageWriter, runs RunSink, notifier Notifier) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		store:     store,
		generator: generator,
		validator: validator,
		pages:     pages,
		runs:      runs,
		notifier:  notifier,
	}
}

// Run executes one full pipeline invocation. The returned Result is
// meaningful even when validation retries were exhausted: Attempts is the
// retry count and Validation carries whatever is still broken.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.slug", req.PageSlug),
		attribute.String("pipeline.method", req.Method),
	)

	if req.Method == "" {
		req.Method = models.RetrievalVector
	}

	state := newState(req)

	state, err := p.retrieve(ctx, state)
	if err != nil {
		return Result{}, err
	}

	editing := req.PageSlug != "" && p.pages.Exists(req.PageSlug)

	for {
		state, err = p.generate(ctx, state, editing)
		if err != nil {
			return Result{}, err
		}

		next, done := p.validate(ctx, state)
		state = next
		if done {
			break
		}
	}

	span.SetAttributes(attribute.Int("pipeline.attempts", state.attempts))
	p.appendRun(ctx, state)
	return state.result(), nil
}

// retrieve embeds the question and runs vector or hybrid search scoped to
// the target page, recording per-step timings.
func (p *Pipeline) retrieve(ctx context.Context, state State) (State, error) {
	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	defer cancel()

	t0 := time.Now()
	queryVec, err := p.embedder.Embed(embedCtx, state.req.Question)
	if err != nil {
		return state, err
	}
	state = state.withTiming("embed_ms", msSince(t0))

	t1 := time.Now()
	k := p.cfg.RetrievalK
	var chunks []models.Chunk
	if state.req.Method == models.RetrievalHybrid {
		vecHits, err := p.store.VectorSearch(ctx, queryVec, state.req.PageSlug, k)
		if err != nil {
			return state, err
		}
		lexHits, err := p.store.LexicalSearch(ctx, state.req.Question, state.req.PageSlug, k)
		if err != nil {
			return state, err
		}
		chunks = vectorstore.FuseRRF(vecHits, lexHits, k)
	} else {
		chunks, err = p.store.VectorSearch(ctx, queryVec, state.req.PageSlug, k)
		if err != nil {
			return state, err
		}
	}
	state = state.withTiming("retrieve_ms", msSince(t1))

	return state.withRetrieved(chunks), nil
}

// generate assembles the prompt (folding in the previous validation
// pass's findings on retries) and calls the generation client.
func (p *Pipeline) generate(ctx context.Context, state State, editing bool) (State, error) {
	genCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
	defer cancel()

	currentHTML, savedComments := p.currentPageMarkup(state.req.PageSlug, editing)

	systemPrompt, userPrompt := BuildPrompt(PromptRequest{
		Question:         state.req.Question,
		Retrieved:        state.retrieved,
		CurrentHTML:      currentHTML,
		SelectedHTML:     state.req.SelectedHTML,
		SelectedPath:     state.req.SelectedPath,
		ValidationErrors: state.priorErrors(),
		PageExists:       editing,
		SystemContext:    state.req.SystemContext,
		Reference:        state.req.Reference,
	})

	t0 := time.Now()
	answer, err := p.generator.GenerateHTML(genCtx, systemPrompt, userPrompt, editing)
	if err != nil {
		return state, err
	}
	state = state.withTiming("generate_ms", msSince(t0))

	if len(savedComments) > 0 {
		answer = minify.RestoreComments(answer, savedComments)
	}
	return state.withAnswer(answer), nil
}

// currentPageMarkup loads the page being edited and shrinks it for the
// prompt: developer comments become placeholders, markup is minified.
// Any failure falls back to retrieved chunks only.
func (p *Pipeline) currentPageMarkup(slug string, editing bool) (string, map[string]string) {
	if !editing {
		return "", nil
	}
	current, err := p.pages.Read(slug)
	if err != nil {
		return "", nil
	}
	stripped, saved := minify.StripComments(current)
	minified, err := minify.Document(stripped)
	if err != nil {
		return stripped, saved
	}
	return minified, saved
}

// validate persists a full HTML answer and checks it in the browser. The
// bool result is true when the pipeline should terminate. A response with
// no <html> document, or no target page, skips validation entirely.
func (p *Pipeline) validate(ctx context.Context, state State) (State, bool) {
	if state.req.PageSlug == "" || !strings.Contains(strings.ToLower(state.answer), "<html") {
		return state, true
	}

	if err := p.pages.Write(state.req.PageSlug, state.answer); err != nil {
		logger.Error("Failed to persist generated page", "slug", state.req.PageSlug, "error", err)
		return state, true
	}
	state = state.withSaved()
	if p.notifier != nil {
		p.notifier.BroadcastReload(state.req.PageSlug)
	}

	valCtx, cancel := context.WithTimeout(ctx, p.cfg.ValidateTimeout)
	defer cancel()

	t0 := time.Now()
	url := p.cfg.BaseURL + "/page/" + state.req.PageSlug
	result := p.validator.ValidatePage(valCtx, url, state.answer)
	state = state.withTiming("validate_ms", msSince(t0)).withValidation(&result)

	// Termination is not gated on success: hitting the ceiling with
	// outstanding issues still ends the run, flagged in the result.
	if result.HasErrors() && state.attempts < p.cfg.MaxFixAttempts {
		return state.withAttempt(), false
	}
	return state, true
}

func (p *Pipeline) appendRun(ctx context.Context, state State) {
	if p.runs == nil {
		return
	}
	refs := make([]models.ChunkRef, 0, len(state.retrieved))
	for _, c := range state.retrieved {
		refs = append(refs, c.Ref())
	}
	preview := state.answer
	if len(preview) > 500 {
		preview = preview[:500]
	}
	rec := models.RunRecord{
		Question:      state.req.Question,
		Slug:          state.req.PageSlug,
		Method:        state.req.Method,
		Retrieved:     refs,
		Timings:       state.timings,
		AnswerPreview: preview,
		Attempts:      state.attempts,
		OK:            state.validation == nil || !state.validation.HasErrors(),
		CreatedAt:     time.Now(),
	}
	if err := p.runs.Append(ctx, rec); err != nil {
		logger.Warn("Failed to append run record", "error", err)
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
