package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"webpagegenie/internal/config"
	"webpagegenie/internal/logger"
	"webpagegenie/models"
)

// RawDOMPath marks the sentinel row that stores a page's full markup.
const RawDOMPath = "RAW_HTML"

// rawSlugSuffix namespaces the raw-markup row away from the page's
// searchable chunks.
const rawSlugSuffix = "__raw"

// VectorStore is the slice of the chunk store ingestion needs.
type VectorStore interface {
	UpsertChunks(ctx context.Context, slug string, chunks []models.Chunk) error
	DeleteSlug(ctx context.Context, slug string) error
}

// Embedder turns chunk texts into vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Service ingests page markup into the vector store: block-level DOM
// chunks when the page has structure, flat overlapping chunks when it
// does not, plus one raw-markup sentinel row per page.
type Service struct {
	store    VectorStore
	embedder Embedder
	cfg      *config.Config
}

func NewService(store VectorStore, embedder Embedder, cfg *config.Config) *Service {
	return &Service{store: store, embedder: embedder, cfg: cfg}
}

// IngestHTML replaces all indexed chunks for slug with ones extracted
// from htmlText. Returns the number of searchable chunks written.
func (s *Service) IngestHTML(ctx context.Context, slug, htmlText string) (int, error) {
	domChunks, err := ExtractDOMChunks(htmlText)
	if err != nil {
		return 0, fmt.Errorf("parse page %s: %w", slug, err)
	}

	var texts []string
	var paths []string
	if len(domChunks) >= minDOMChunks {
		for _, c := range domChunks {
			texts = append(texts, c.Text)
			paths = append(paths, c.Path)
		}
	} else {
		flat, err := FlatText(htmlText)
		if err != nil {
			return 0, fmt.Errorf("extract text for %s: %w", slug, err)
		}
		for _, t := range ChunkText(flat, s.cfg.MaxChunkSize, s.cfg.ChunkOverlap) {
			texts = append(texts, t)
			paths = append(paths, "")
		}
	}

	if len(texts) == 0 {
		logger.Warn("Page produced no chunks, storing raw markup only", "slug", slug)
		return 0, s.upsertRaw(ctx, slug, htmlText)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks for %s: %w", slug, err)
	}

	chunks := make([]models.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, models.Chunk{
			Slug:      slug,
			ChunkID:   i,
			Content:   text,
			Embedding: vectors[i],
			DOMPath:   paths[i],
		})
	}

	if err := s.store.UpsertChunks(ctx, slug, chunks); err != nil {
		return 0, fmt.Errorf("store chunks for %s: %w", slug, err)
	}
	if err := s.upsertRaw(ctx, slug, htmlText); err != nil {
		return 0, err
	}

	logger.Info("Page ingested", "slug", slug, "chunks", len(chunks))
	return len(chunks), nil
}

func (s *Service) upsertRaw(ctx context.Context, slug, htmlText string) error {
	raw := models.Chunk{
		Slug:    slug + rawSlugSuffix,
		ChunkID: -1,
		Content: htmlText,
		DOMPath: RawDOMPath,
	}
	if err := s.store.UpsertChunks(ctx, raw.Slug, []models.Chunk{raw}); err != nil {
		return fmt.Errorf("store raw markup for %s: %w", slug, err)
	}
	return nil
}

// IngestFile ingests one HTML file from disk, deriving the slug from
// its path.
func (s *Service) IngestFile(ctx context.Context, path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", path, err)
	}
	slug := SlugFromPath(path)
	n, err := s.IngestHTML(ctx, slug, string(data))
	return slug, n, err
}

// IngestDir walks dir and ingests every page it finds, both flat
// <slug>.html files and <slug>/index.html layouts. Returns chunk counts
// per slug; individual page failures are logged and skipped.
func (s *Service) IngestDir(ctx context.Context, dir string) (map[string]int, error) {
	counts := map[string]int{}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isHTMLFile(path) {
			return nil
		}
		slug, n, err := s.IngestFile(ctx, path)
		if err != nil {
			logger.Error("Failed to ingest page", "path", path, "error", err)
			return nil
		}
		counts[slug] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return counts, nil
}

// Remove deletes a page's chunks and its raw-markup row.
func (s *Service) Remove(ctx context.Context, slug string) error {
	if err := s.store.DeleteSlug(ctx, slug); err != nil {
		return err
	}
	return s.store.DeleteSlug(ctx, slug+rawSlugSuffix)
}

// SlugFromPath derives the page slug from a file path: the directory
// name for <slug>/index.html, the file stem otherwise.
func SlugFromPath(path string) string {
	base := filepath.Base(path)
	if strings.EqualFold(base, "index.html") {
		return filepath.Base(filepath.Dir(path))
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isHTMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}
