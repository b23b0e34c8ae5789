package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"webpagegenie/internal/vectorstore"
	"webpagegenie/models"

	"github.com/google/uuid"
)

// RunLog is the append-only audit sink backed by the runs table. Records
// are never updated or deleted.
type RunLog struct {
	db vectorstore.DB
}

func NewRunLog(db vectorstore.DB) *RunLog {
	return &RunLog{db: db}
}

// Append writes one run record. The caller treats failure as
// non-fatal; an unlogged run never fails the request that produced it.
func (r *RunLog) Append(ctx context.Context, rec models.RunRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	retrieved, err := json.Marshal(rec.Retrieved)
	if err != nil {
		return fmt.Errorf("marshal retrieved refs: %w", err)
	}
	timings, err := json.Marshal(rec.Timings)
	if err != nil {
		return fmt.Errorf("marshal timings: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO runs (id, question, slug, method, retrieved, timings, answer_preview, attempts, ok, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Question, rec.Slug, rec.Method, retrieved, timings,
		rec.AnswerPreview, rec.Attempts, rec.OK, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

// Recent returns the latest n run records, newest first.
func (r *RunLog) Recent(ctx context.Context, n int) ([]models.RunRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question, slug, method, retrieved, timings, answer_preview, attempts, ok, created_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.RunRecord, 0, n)
	for rows.Next() {
		var rec models.RunRecord
		var slug *string
		var retrieved, timings []byte
		if err := rows.Scan(&rec.ID, &rec.Question, &slug, &rec.Method, &retrieved,
			&timings, &rec.AnswerPreview, &rec.Attempts, &rec.OK, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if slug != nil {
			rec.Slug = *slug
		}
		if err := json.Unmarshal(retrieved, &rec.Retrieved); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(timings, &rec.Timings); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
