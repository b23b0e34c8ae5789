package routes

import (
	"net/http"
	"time"

	"webpagegenie/internal/ai"
	"webpagegenie/internal/config"
	"webpagegenie/internal/ingest"
	"webpagegenie/internal/logger"
	"webpagegenie/internal/pages"
	"webpagegenie/internal/rag"
	"webpagegenie/models"
	"webpagegenie/utils"

	"github.com/gin-gonic/gin"
)

func SetupChatRoutes(router *gin.Engine, cfg *config.Config, pipeline *rag.Pipeline, scraper *ingest.Scraper) {
	router.POST("/api/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if req.PageSlug != "" && !pages.ValidSlug(req.PageSlug) {
			utils.RespondWithBadRequest(c, "Invalid page slug", gin.H{"slug": req.PageSlug})
			return
		}
		switch req.Method {
		case "", models.RetrievalVector, models.RetrievalHybrid:
		default:
			utils.RespondWithBadRequest(c, "Unknown retrieval method", gin.H{"method": req.Method})
			return
		}

		// Reference scraping is best-effort: a dead reference URL should
		// not block the edit itself.
		var ref *models.ScrapedSite
		if req.ReferenceURL != "" {
			site, err := scraper.Scrape(c.Request.Context(), req.ReferenceURL)
			if err != nil {
				logger.Warn("Reference scrape failed, continuing without it",
					"url", req.ReferenceURL, "error", err)
			} else {
				if !req.ExtractImages {
					site.Images = nil
				}
				ref = site
			}
		}

		result, err := pipeline.Run(c.Request.Context(), rag.Request{
			Question:      req.Message,
			PageSlug:      req.PageSlug,
			Method:        req.Method,
			SelectedHTML:  req.SelectedHTML,
			SelectedPath:  req.SelectedPath,
			SystemContext: req.SystemContext,
			Reference:     ref,
		})
		if err != nil {
			if ai.IsUpstream(err) {
				utils.RespondWithBadGateway(c, "Generation provider failed", gin.H{"error": err.Error()})
				return
			}
			logger.Error("Chat pipeline failed", "slug", req.PageSlug, "error", err)
			utils.RespondWithInternalError(c, "Failed to process request", nil)
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Answer:     result.Answer,
			Saved:      result.Saved,
			Slug:       req.PageSlug,
			Attempts:   result.Attempts,
			Timings:    result.Timings,
			Validation: result.Validation,
			Timestamp:  time.Now(),
		})
	})
}
