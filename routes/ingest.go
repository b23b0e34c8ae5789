package routes

import (
	"net/http"

	"webpagegenie/internal/pages"
	"webpagegenie/internal/queue"
	"webpagegenie/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// SetupIngestRoutes exposes background indexing: both endpoints only
// enqueue; the worker process does the heavy lifting.
func SetupIngestRoutes(router *gin.Engine, client *asynq.Client, manager *pages.Manager) {
	router.POST("/api/ingest", func(c *gin.Context) {
		var req struct {
			Slug string `json:"slug,omitempty"`
			All  bool   `json:"all,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var slugs []string
		switch {
		case req.All:
			list, err := manager.List()
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to list pages", nil)
				return
			}
			for _, p := range list {
				slugs = append(slugs, p.Slug)
			}
		case pages.ValidSlug(req.Slug):
			if !manager.Exists(req.Slug) {
				utils.RespondWithNotFound(c, "Page not found")
				return
			}
			slugs = []string{req.Slug}
		default:
			utils.RespondWithBadRequest(c, "Provide a valid slug or all=true", nil)
			return
		}

		enqueued := 0
		for _, slug := range slugs {
			task, err := queue.NewIngestPageTask(slug, "")
			if err != nil {
				continue
			}
			if _, err := client.Enqueue(task); err != nil {
				utils.RespondWithInternalError(c, "Failed to enqueue ingest task", gin.H{"slug": slug})
				return
			}
			enqueued++
		}
		c.JSON(http.StatusAccepted, gin.H{"enqueued": enqueued})
	})

	router.POST("/api/scrape", func(c *gin.Context) {
		var req struct {
			URL  string `json:"url" binding:"required"`
			Slug string `json:"slug" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if !pages.ValidSlug(req.Slug) {
			utils.RespondWithBadRequest(c, "Invalid slug", gin.H{"slug": req.Slug})
			return
		}

		task, err := queue.NewScrapeSiteTask(req.URL, req.Slug)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build scrape task", nil)
			return
		}
		info, err := client.Enqueue(task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue scrape task", nil)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
	})
}
