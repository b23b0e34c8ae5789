package routes

import (
	"net/http"
	"strconv"

	"webpagegenie/internal/rag"
	"webpagegenie/utils"

	"github.com/gin-gonic/gin"
)

func SetupRunRoutes(router *gin.Engine, runs *rag.RunLog) {
	router.GET("/api/runs", func(c *gin.Context) {
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 200 {
				utils.RespondWithBadRequest(c, "limit must be between 1 and 200", nil)
				return
			}
			limit = n
		}

		records, err := runs.Recent(c.Request.Context(), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list runs", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": records, "count": len(records)})
	})
}
