package models

import (
	"time"

	"github.com/google/uuid"
)

// RunRecord is one append-only audit entry per pipeline invocation. Never
// mutated after insert.
type RunRecord struct {
	ID            uuid.UUID          `json:"id"`
	Question      string             `json:"question"`
	Slug          string             `json:"slug,omitempty"`
	Method        string             `json:"method"`
	Retrieved     []ChunkRef         `json:"retrieved"`
	Timings       map[string]float64 `json:"timings"`
	AnswerPreview string             `json:"answer_preview"`
	Attempts      int                `json:"attempts"`
	OK            bool               `json:"ok"`
	CreatedAt     time.Time          `json:"created_at"`
}
