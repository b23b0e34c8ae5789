package routes

import (
	"net/http"

	"webpagegenie/internal/ai"
	"webpagegenie/internal/config"
	"webpagegenie/internal/pages"
	"webpagegenie/internal/validator"
	"webpagegenie/utils"

	"github.com/gin-gonic/gin"
)

func SetupToolRoutes(router *gin.Engine, cfg *config.Config, images *ai.ImageGenerator,
	browser *validator.BrowserValidator, manager *pages.Manager) {
	tools := router.Group("/api/tools")

	tools.POST("/image", func(c *gin.Context) {
		var req struct {
			Prompt string `json:"prompt" binding:"required"`
			Slug   string `json:"slug" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if !pages.ValidSlug(req.Slug) {
			utils.RespondWithBadRequest(c, "Invalid slug", gin.H{"slug": req.Slug})
			return
		}

		result, err := images.Generate(c.Request.Context(), req.Prompt, req.Slug)
		if err != nil {
			utils.RespondWithInternalError(c, "Image generation failed", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// On-demand validation of an already saved page, outside any
	// pipeline run.
	tools.POST("/validate", func(c *gin.Context) {
		var req struct {
			Slug string `json:"slug" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		htmlText, err := manager.Read(req.Slug)
		if err != nil {
			utils.RespondWithNotFound(c, "Page not found")
			return
		}

		url := cfg.BaseURL + "/page/" + req.Slug
		result := browser.ValidatePage(c.Request.Context(), url, htmlText)
		c.JSON(http.StatusOK, result)
	})
}
