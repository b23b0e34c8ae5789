package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"webpagegenie/internal/ingest"
	"webpagegenie/internal/logger"
)

const (
	TaskIngestPage = "page:ingest"
	TaskScrapeSite = "site:scrape"
)

type IngestPagePayload struct {
	Slug string `json:"slug"`
	Path string `json:"path"`
}

type ScrapeSitePayload struct {
	URL  string `json:"url"`
	Slug string `json:"slug"`
}

// Task creators

func NewIngestPageTask(slug, path string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPagePayload{Slug: slug, Path: path})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestPage,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
	), nil
}

func NewScrapeSiteTask(url, slug string) (*asynq.Task, error) {
	payload, err := json.Marshal(ScrapeSitePayload{URL: url, Slug: slug})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskScrapeSite,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(3*time.Minute),
		asynq.Queue("scrape"),
	), nil
}

// PageReader resolves a slug to its current markup.
type PageReader interface {
	Read(slug string) (string, error)
	Path(slug string) string
}

// Notifier pushes live-reload events once background work lands.
type Notifier interface {
	BroadcastReload(slug string)
}

// TaskProcessor executes queued ingestion and scrape jobs.
type TaskProcessor struct {
	ingester *ingest.Service
	scraper  *ingest.Scraper
	pages    PageReader
	notifier Notifier
}

func NewTaskProcessor(ingester *ingest.Service, scraper *ingest.Scraper, pages PageReader, notifier Notifier) *TaskProcessor {
	return &TaskProcessor{
		ingester: ingester,
		scraper:  scraper,
		pages:    pages,
		notifier: notifier,
	}
}

// ProcessIngestPage re-indexes one page's chunks. The path in the
// payload wins over the managed page tree when both are set.
func (p *TaskProcessor) ProcessIngestPage(ctx context.Context, t *asynq.Task) error {
	var payload IngestPagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing page ingest", "slug", payload.Slug, "path", payload.Path)

	if payload.Path != "" {
		slug, n, err := p.ingester.IngestFile(ctx, payload.Path)
		if err != nil {
			return err
		}
		logger.Info("Page ingest complete", "slug", slug, "chunks", n)
		if p.notifier != nil {
			p.notifier.BroadcastReload(slug)
		}
		return nil
	}

	htmlText, err := p.pages.Read(payload.Slug)
	if err != nil {
		// The page is gone; retrying will not bring it back.
		return fmt.Errorf("read page %s: %v: %w", payload.Slug, err, asynq.SkipRetry)
	}
	n, err := p.ingester.IngestHTML(ctx, payload.Slug, htmlText)
	if err != nil {
		return err
	}
	logger.Info("Page ingest complete", "slug", payload.Slug, "chunks", n)
	if p.notifier != nil {
		p.notifier.BroadcastReload(payload.Slug)
	}
	return nil
}

// ProcessScrapeSite fetches a reference site's design data and indexes
// its text under the given slug so later creations can retrieve it.
func (p *TaskProcessor) ProcessScrapeSite(ctx context.Context, t *asynq.Task) error {
	var payload ScrapeSitePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing site scrape", "url", payload.URL, "slug", payload.Slug)

	site, err := p.scraper.Scrape(ctx, payload.URL)
	if err != nil {
		return err
	}

	doc := "<html><body>" + site.Text + "</body></html>"
	n, err := p.ingester.IngestHTML(ctx, payload.Slug, doc)
	if err != nil {
		return err
	}

	logger.Info("Site scrape complete", "slug", payload.Slug, "title", site.Title, "chunks", n)
	return nil
}
