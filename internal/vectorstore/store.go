package vectorstore

import (
	"context"
	"fmt"

	"webpagegenie/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DB is the slice of pgxpool.Pool the store needs. Kept narrow so tests
// can substitute a mock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store reads and writes content chunks in the documents table. All
// methods are safe for concurrent use; writers rely on the database's own
// transaction isolation, nothing more.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// UpsertChunks atomically replaces every chunk for slug: the delete and
// all inserts share one transaction, so a concurrent reader sees either
// the old set or the new set, never a mix. Concurrent upserts to the same
// slug are last-committed-wins.
func (s *Store) UpsertChunks(ctx context.Context, slug string, chunks []models.Chunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", slug, err)
	}

	for _, c := range chunks {
		var emb *pgvector.Vector
		if len(c.Embedding) > 0 {
			v := pgvector.NewVector(c.Embedding)
			emb = &v
		}
		var domPath *string
		if c.DOMPath != "" {
			domPath = &c.DOMPath
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO documents (slug, chunk_id, content, embedding, dom_path) VALUES ($1, $2, $3, $4, $5)`,
			slug, c.ChunkID, c.Content, emb, domPath)
		if err != nil {
			return fmt.Errorf("insert chunk %s/%d: %w", slug, c.ChunkID, err)
		}
	}

	return tx.Commit(ctx)
}

// VectorSearch returns the k chunks nearest to queryVec by cosine
// distance, optionally restricted to one slug. Ties beyond distance are
// left to the store's natural order.
func (s *Store) VectorSearch(ctx context.Context, queryVec []float32, slug string, k int) ([]models.Chunk, error) {
	vec := pgvector.NewVector(queryVec)

	var rows pgx.Rows
	var err error
	if slug != "" {
		rows, err = s.db.Query(ctx,
			`SELECT id, slug, chunk_id, content, dom_path FROM documents
			 WHERE chunk_id >= 0 AND embedding IS NOT NULL AND slug = $1
			 ORDER BY embedding <=> $2 LIMIT $3`,
			slug, vec, k)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT id, slug, chunk_id, content, dom_path FROM documents
			 WHERE chunk_id >= 0 AND embedding IS NOT NULL
			 ORDER BY embedding <=> $1 LIMIT $2`,
			vec, k)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// LexicalSearch ranks chunks against queryText with ts_rank over the
// generated full-text column, best-first. Raw-HTML sentinel rows
// (chunk_id -1) index a whole page's markup and must never rank as
// chunks, so both query shapes filter them out.
func (s *Store) LexicalSearch(ctx context.Context, queryText, slug string, k int) ([]models.Chunk, error) {
	var rows pgx.Rows
	var err error
	if slug != "" {
		rows, err = s.db.Query(ctx,
			`SELECT id, slug, chunk_id, content, dom_path FROM documents
			 WHERE chunk_id >= 0 AND slug = $1 AND content_tsv @@ plainto_tsquery('english', $2)
			 ORDER BY ts_rank(content_tsv, plainto_tsquery('english', $2)) DESC LIMIT $3`,
			slug, queryText, k)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT id, slug, chunk_id, content, dom_path FROM documents
			 WHERE chunk_id >= 0 AND content_tsv @@ plainto_tsquery('english', $1)
			 ORDER BY ts_rank(content_tsv, plainto_tsquery('english', $1)) DESC LIMIT $2`,
			queryText, k)
	}
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// RawHTML fetches the stored raw document for slug, ingested under the
// "<slug>__raw" sentinel. Empty string when absent.
func (s *Store) RawHTML(ctx context.Context, slug string) (string, error) {
	var content string
	err := s.db.QueryRow(ctx,
		`SELECT content FROM documents WHERE slug = $1 AND chunk_id = -1`,
		slug+"__raw").Scan(&content)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("raw html for %s: %w", slug, err)
	}
	return content, nil
}

// ListSlugs returns every distinct slug with its chunk count, raw-HTML
// sentinels excluded.
func (s *Store) ListSlugs(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT slug, count(*) FROM documents WHERE chunk_id >= 0 GROUP BY slug ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var slug string
		var n int
		if err := rows.Scan(&slug, &n); err != nil {
			return nil, err
		}
		out[slug] = n
	}
	return out, rows.Err()
}

// DeleteSlug removes a page's chunks and its raw-HTML sentinel.
func (s *Store) DeleteSlug(ctx context.Context, slug string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM documents WHERE slug = $1 OR slug = $2`, slug, slug+"__raw")
	if err != nil {
		return fmt.Errorf("delete slug %s: %w", slug, err)
	}
	return nil
}

func scanChunks(rows pgx.Rows) ([]models.Chunk, error) {
	chunks := make([]models.Chunk, 0)
	for rows.Next() {
		var c models.Chunk
		var domPath *string
		if err := rows.Scan(&c.ID, &c.Slug, &c.ChunkID, &c.Content, &domPath); err != nil {
			return nil, err
		}
		if domPath != nil {
			c.DOMPath = *domPath
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
