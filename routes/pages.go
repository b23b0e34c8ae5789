package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"webpagegenie/internal/pages"
	"webpagegenie/utils"

	"github.com/gin-gonic/gin"
)

const wsPath = "/ws"

func SetupPageRoutes(router *gin.Engine, manager *pages.Manager) {
	// Serves the page itself with the live-reload client injected. The
	// stored markup never contains the snippet.
	router.GET("/page/:slug", func(c *gin.Context) {
		slug := c.Param("slug")
		htmlText, err := manager.Read(slug)
		if err != nil {
			utils.RespondWithNotFound(c, "Page not found")
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte(pages.WithReloadScript(htmlText, wsPath, slug)))
	})

	router.GET("/page/:slug/assets/:file", func(c *gin.Context) {
		slug := c.Param("slug")
		file := c.Param("file")
		if !pages.ValidSlug(slug) || file != filepath.Base(file) {
			utils.RespondWithNotFound(c, "Asset not found")
			return
		}
		path := filepath.Join(filepath.Dir(manager.Path(slug)), "assets", file)
		if _, err := os.Stat(path); err != nil {
			utils.RespondWithNotFound(c, "Asset not found")
			return
		}
		c.File(path)
	})

	api := router.Group("/api/pages")

	api.GET("", func(c *gin.Context) {
		list, err := manager.List()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list pages", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pages": list, "count": len(list)})
	})

	api.GET("/:slug", func(c *gin.Context) {
		htmlText, err := manager.Read(c.Param("slug"))
		if err != nil {
			utils.RespondWithNotFound(c, "Page not found")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(htmlText))
	})

	api.GET("/:slug/versions", func(c *gin.Context) {
		versions, err := manager.Versions(c.Param("slug"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Failed to list versions", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"versions": versions, "count": len(versions)})
	})

	api.POST("/:slug/restore", func(c *gin.Context) {
		var req struct {
			Version string `json:"version" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if err := manager.Restore(c.Param("slug"), req.Version); err != nil {
			utils.RespondWithBadRequest(c, "Failed to restore version", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"restored": req.Version})
	})

	api.DELETE("/:slug", func(c *gin.Context) {
		if err := manager.Delete(c.Param("slug")); err != nil {
			utils.RespondWithBadRequest(c, "Failed to delete page", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("slug")})
	})
}
