package services

import (
	"context"
	"time"

	"webpagegenie/internal/config"
	"webpagegenie/internal/ingest"
	"webpagegenie/internal/logger"
	"webpagegenie/internal/pages"

	"github.com/go-co-op/gocron"
)

// CronService re-indexes the page tree on a schedule so pages edited
// outside the API drift back into sync, and prunes version snapshots
// past the retention cap.
type CronService struct {
	scheduler *gocron.Scheduler
	ingester  *ingest.Service
	manager   *pages.Manager
	cfg       *config.Config
}

func NewCronService(cfg *config.Config, ingester *ingest.Service, manager *pages.Manager) *CronService {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &CronService{
		scheduler: s,
		ingester:  ingester,
		manager:   manager,
		cfg:       cfg,
	}
}

func (c *CronService) Start() error {
	if _, err := c.scheduler.Every(6 * time.Hour).Tag("reingest").Do(c.reingestAll); err != nil {
		return err
	}
	if _, err := c.scheduler.Every(24 * time.Hour).Tag("prune").Do(c.pruneVersions); err != nil {
		return err
	}
	c.scheduler.StartAsync()
	logger.Info("Cron service started", "reingest_interval", "6h", "prune_interval", "24h")
	return nil
}

func (c *CronService) Stop() {
	c.scheduler.Stop()
}

func (c *CronService) reingestAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	counts, err := c.ingester.IngestDir(ctx, c.cfg.PagesDir)
	if err != nil {
		logger.Error("Scheduled re-ingest failed", "error", err)
		return
	}
	logger.Info("Scheduled re-ingest complete", "pages", len(counts))
}

func (c *CronService) pruneVersions() {
	list, err := c.manager.List()
	if err != nil {
		logger.Error("Version prune failed", "error", err)
		return
	}
	for _, p := range list {
		if err := c.manager.Prune(p.Slug); err != nil {
			logger.Warn("Failed to prune versions", "slug", p.Slug, "error", err)
		}
	}
}
