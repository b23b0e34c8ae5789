package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"webpagegenie/internal/ai"
	"webpagegenie/internal/config"
	"webpagegenie/internal/ingest"
	"webpagegenie/internal/logger"
	"webpagegenie/internal/vectorstore"
)

// One-shot indexer for the pages directory. With -reset, every slug
// already in the store is dropped first so deleted pages do not linger
// in search results.
func main() {
	reset := flag.Bool("reset", false, "delete all indexed chunks before ingesting")
	dir := flag.String("dir", "", "pages directory (defaults to PAGES_DIR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if *dir != "" {
		cfg.PagesDir = *dir
	}

	ctx := context.Background()

	pool, err := config.ConnectPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Postgres:", err)
	}
	defer pool.Close()
	if err := config.InitSchema(ctx, pool, cfg.EmbedDim); err != nil {
		log.Fatal("Failed to initialize schema:", err)
	}

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	store := vectorstore.NewStore(pool)
	ingester := ingest.NewService(store, embedder, cfg)

	if *reset {
		slugs, err := store.ListSlugs(ctx)
		if err != nil {
			log.Fatal("Failed to list slugs:", err)
		}
		for slug := range slugs {
			if err := ingester.Remove(ctx, slug); err != nil {
				log.Fatal("Failed to remove slug:", err)
			}
		}
		logger.Info("Index reset", "slugs", len(slugs))
	}

	counts, err := ingester.IngestDir(ctx, cfg.PagesDir)
	if err != nil {
		log.Fatal("Ingest failed:", err)
	}

	total := 0
	for slug, n := range counts {
		fmt.Printf("  %-30s %d chunks\n", slug, n)
		total += n
	}
	fmt.Printf("Ingested %d pages, %d chunks\n", len(counts), total)

	if len(counts) == 0 {
		fmt.Fprintln(os.Stderr, "No pages found in", cfg.PagesDir)
	}
}
