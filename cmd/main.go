package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webpagegenie/internal/ai"
	"webpagegenie/internal/config"
	"webpagegenie/internal/ingest"
	"webpagegenie/internal/logger"
	"webpagegenie/internal/pages"
	"webpagegenie/internal/rag"
	"webpagegenie/internal/telemetry"
	"webpagegenie/internal/validator"
	"webpagegenie/internal/vectorstore"
	"webpagegenie/internal/ws"
	"webpagegenie/middleware"
	"webpagegenie/routes"
	"webpagegenie/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("webpagegenie", cfg)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
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

	generator, err := ai.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer generator.Close()

	images, err := ai.NewImageGenerator(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize image generator:", err)
	}
	defer images.Close()

	store := vectorstore.NewStore(pool)
	runLog := rag.NewRunLog(pool)
	manager := pages.NewManager(cfg.PagesDir, cfg.MaxVersions)
	hub := ws.NewHub()
	browser := validator.NewBrowserValidator(cfg.NetworkIdleWait)
	scraper := ingest.NewScraper(cfg)
	ingester := ingest.NewService(store, embedder, cfg)

	pipeline := rag.NewPipeline(cfg, embedder, store, generator, browser, manager, runLog, hub)

	asynqClient := asynq.NewClient(config.AsynqRedisOpt(cfg))
	defer asynqClient.Close()

	watcher := services.NewWatcher(cfg, ingester, hub)
	if err := watcher.Start(); err != nil {
		logger.Warn("Page watcher disabled", "error", err)
	} else {
		defer watcher.Stop()
	}

	cron := services.NewCronService(cfg, ingester, manager)
	if err := cron.Start(); err != nil {
		logger.Warn("Cron service disabled", "error", err)
	} else {
		defer cron.Stop()
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	if rdb, err := config.NewRedisClient(cfg); err == nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	} else {
		logger.Warn("Rate limiting disabled", "error", err)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	routes.SetupChatRoutes(router, cfg, pipeline, scraper)
	routes.SetupPageRoutes(router, manager)
	routes.SetupIngestRoutes(router, asynqClient, manager)
	routes.SetupToolRoutes(router, cfg, images, browser, manager)
	routes.SetupRunRoutes(router, runLog)
	routes.SetupWSRoutes(router, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
