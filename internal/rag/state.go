package rag

import (
	"maps"
	"slices"

	"webpagegenie/models"
)

// Request is the pipeline's entire externally meaningful input surface.
type Request struct {
	Question      string
	PageSlug      string
	Method        string // models.RetrievalVector or models.RetrievalHybrid
	SelectedHTML  string
	SelectedPath  []string
	SystemContext string
	Reference     *models.ScrapedSite
}

// Result is what a pipeline run hands back to its caller. A run that
// exhausted its retries still returns the last answer, with Validation
// carrying the outstanding issues.
type Result struct {
	Answer     string
	Saved      bool
	Attempts   int
	Timings    map[string]float64
	Validation *models.ValidationResult
	Retrieved  []models.Chunk
}

// State threads one pipeline invocation through its steps. Each step
// receives a State by value and returns an updated copy; nothing is
// shared, so the retry loop's inputs are explicit and auditable.
type State struct {
	req        Request
	retrieved  []models.Chunk
	answer     string
	timings    map[string]float64
	validation *models.ValidationResult
	attempts   int
	saved      bool
}

func newState(req Request) State {
	return State{req: req, timings: map[string]float64{}}
}

// withTiming returns a copy with one more step timing recorded. Repeated
// steps (generate on retry) accumulate.
func (s State) withTiming(step string, ms float64) State {
	t := maps.Clone(s.timings)
	t[step] += ms
	s.timings = t
	return s
}

func (s State) withRetrieved(chunks []models.Chunk) State {
	s.retrieved = slices.Clone(chunks)
	return s
}

func (s State) withAnswer(answer string) State {
	s.answer = answer
	return s
}

func (s State) withValidation(v *models.ValidationResult) State {
	s.validation = v
	return s
}

func (s State) withAttempt() State {
	s.attempts++
	return s
}

func (s State) withSaved() State {
	s.saved = true
	return s
}

// priorErrors is what the next generation prompt should fix: the previous
// validation pass's findings, or nothing on the first pass.
func (s State) priorErrors() []string {
	if s.validation == nil {
		return nil
	}
	return s.validation.Issues()
}

func (s State) result() Result {
	return Result{
		Answer:     s.answer,
		Saved:      s.saved,
		Attempts:   s.attempts,
		Timings:    s.timings,
		Validation: s.validation,
		Retrieved:  s.retrieved,
	}
}
