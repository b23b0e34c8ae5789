package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// hnswDimLimit is pgvector's dimension ceiling for HNSW indexes; larger
// embeddings get an IVFFlat index instead.
const hnswDimLimit = 2000

// ConnectPostgres opens a pgx pool, registers the pgvector codec, and
// verifies connectivity.
func ConnectPostgres(cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}

	return pool, nil
}

// InitSchema creates the vector extension, the documents and runs tables,
// and the search indexes. content_tsv is a generated column so lexical
// search never goes stale relative to content.
func InitSchema(ctx context.Context, pool *pgxpool.Pool, embedDim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id bigserial PRIMARY KEY,
			slug varchar(255) NOT NULL,
			chunk_id int NOT NULL,
			content text NOT NULL,
			embedding vector(%d),
			dom_path text,
			content_tsv tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
			UNIQUE (slug, chunk_id)
		)`, embedDim),
		`CREATE INDEX IF NOT EXISTS documents_slug_idx ON documents (slug)`,
		`CREATE INDEX IF NOT EXISTS documents_tsv_idx ON documents USING gin (content_tsv)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id uuid PRIMARY KEY,
			question text NOT NULL,
			slug varchar(255),
			method varchar(32) NOT NULL,
			retrieved jsonb NOT NULL DEFAULT '[]',
			timings jsonb NOT NULL DEFAULT '{}',
			answer_preview text NOT NULL DEFAULT '',
			attempts int NOT NULL DEFAULT 0,
			ok boolean NOT NULL DEFAULT false,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC)`,
	}

	if embedDim <= hnswDimLimit {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING hnsw (embedding vector_cosine_ops)`)
	} else {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS documents_embedding_idx ON documents USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`)
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema init failed: %v", err)
		}
	}
	return nil
}

// ZeroVector is a helper for tests and placeholder rows.
func ZeroVector(dim int) pgvector.Vector {
	return pgvector.NewVector(make([]float32, dim))
}
