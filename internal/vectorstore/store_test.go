package vectorstore

import (
	"context"
	"testing"

	"webpagegenie/models"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func TestUpsertChunksDeleteAndInsertShareOneTx(t *testing.T) {
	mock, store := newMockStore(t)

	emb := pgvector.NewVector([]float32{0.1, 0.2})
	domPath := "html:nth-of-type(1)>body:nth-of-type(1)>p:nth-of-type(1)"

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents WHERE slug = \$1`).
		WithArgs("landing").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("landing", 0, "hello", &emb, &domPath).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	chunks := []models.Chunk{{
		Slug:      "landing",
		ChunkID:   0,
		Content:   "hello",
		Embedding: []float32{0.1, 0.2},
		DOMPath:   domPath,
	}}
	if err := store.UpsertChunks(context.Background(), "landing", chunks); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertChunksRollsBackOnInsertFailure(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents WHERE slug = \$1`).
		WithArgs("landing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("landing", 0, "hello", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	chunks := []models.Chunk{{Slug: "landing", ChunkID: 0, Content: "hello"}}
	if err := store.UpsertChunks(context.Background(), "landing", chunks); err == nil {
		t.Fatalf("expected insert failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVectorSearchScopedToSlug(t *testing.T) {
	mock, store := newMockStore(t)

	rows := pgxmock.NewRows([]string{"id", "slug", "chunk_id", "content", "dom_path"}).
		AddRow(int64(1), "landing", 0, "nearest", nil).
		AddRow(int64(2), "landing", 3, "second", nil)

	mock.ExpectQuery(`ORDER BY embedding <=> \$2 LIMIT \$3`).
		WithArgs("landing", pgvector.NewVector([]float32{1, 0}), 2).
		WillReturnRows(rows)

	got, err := store.VectorSearch(context.Background(), []float32{1, 0}, "landing", 2)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(got) != 2 || got[0].Content != "nearest" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLexicalSearchUsesFullTextRanking(t *testing.T) {
	mock, store := newMockStore(t)

	rows := pgxmock.NewRows([]string{"id", "slug", "chunk_id", "content", "dom_path"}).
		AddRow(int64(7), "landing", 1, "pricing table", nil)

	mock.ExpectQuery(`ts_rank\(content_tsv, plainto_tsquery`).
		WithArgs("pricing", 5).
		WillReturnRows(rows)

	got, err := store.LexicalSearch(context.Background(), "pricing", "", 5)
	if err != nil {
		t.Fatalf("lexical search: %v", err)
	}
	if len(got) != 1 || got[0].ChunkID != 1 {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchesExcludeRawSentinelRows(t *testing.T) {
	mock, store := newMockStore(t)

	empty := pgxmock.NewRows([]string{"id", "slug", "chunk_id", "content", "dom_path"})
	mock.ExpectQuery(`WHERE chunk_id >= 0 AND content_tsv @@ plainto_tsquery`).
		WithArgs("pricing", 5).
		WillReturnRows(empty)

	if _, err := store.LexicalSearch(context.Background(), "pricing", "", 5); err != nil {
		t.Fatalf("lexical search: %v", err)
	}

	empty = pgxmock.NewRows([]string{"id", "slug", "chunk_id", "content", "dom_path"})
	mock.ExpectQuery(`WHERE chunk_id >= 0 AND embedding IS NOT NULL`).
		WithArgs(pgvector.NewVector([]float32{1, 0}), 3).
		WillReturnRows(empty)

	if _, err := store.VectorSearch(context.Background(), []float32{1, 0}, "", 3); err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListSlugsKeepsSlugsEndingInRaw(t *testing.T) {
	mock, store := newMockStore(t)

	rows := pgxmock.NewRows([]string{"slug", "count"}).
		AddRow("landing", 4).
		AddRow("withdraw", 2)
	mock.ExpectQuery(`SELECT slug, count\(\*\) FROM documents WHERE chunk_id >= 0 GROUP BY slug`).
		WillReturnRows(rows)

	got, err := store.ListSlugs(context.Background())
	if err != nil {
		t.Fatalf("list slugs: %v", err)
	}
	if got["withdraw"] != 2 {
		t.Fatalf("slug ending in raw should be listed, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRawHTMLMissingIsEmptyNotError(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`SELECT content FROM documents WHERE slug = \$1 AND chunk_id = -1`).
		WithArgs("ghost__raw").
		WillReturnError(pgx.ErrNoRows)

	got, err := store.RawHTML(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("raw html: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty content, got %q", got)
	}
}

func TestDeleteSlugRemovesSentinelToo(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec(`DELETE FROM documents WHERE slug = \$1 OR slug = \$2`).
		WithArgs("landing", "landing__raw").
		WillReturnResult(pgxmock.NewResult("DELETE", 6))

	if err := store.DeleteSlug(context.Background(), "landing"); err != nil {
		t.Fatalf("delete slug: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
