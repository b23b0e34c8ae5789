package main

import (
	"context"
	"log"

	"webpagegenie/internal/ai"
	"webpagegenie/internal/config"
	"webpagegenie/internal/ingest"
	"webpagegenie/internal/logger"
	"webpagegenie/internal/pages"
	"webpagegenie/internal/queue"
	"webpagegenie/internal/vectorstore"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

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
	manager := pages.NewManager(cfg.PagesDir, cfg.MaxVersions)
	ingester := ingest.NewService(store, embedder, cfg)
	scraper := ingest.NewScraper(cfg)

	server := asynq.NewServer(
		config.AsynqRedisOpt(cfg),
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 6,
				"scrape":  4,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// The worker has no reload hub of its own; reloads for queued
	// ingests ride on the watcher in the API process.
	processor := queue.NewTaskProcessor(ingester, scraper, manager, nil)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestPage, processor.ProcessIngestPage)
	mux.HandleFunc(queue.TaskScrapeSite, processor.ProcessScrapeSite)

	logger.Info("Starting worker", "concurrency", 5, "redis", cfg.RedisURL)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
