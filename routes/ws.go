package routes

import (
	"webpagegenie/internal/ws"

	"github.com/gin-gonic/gin"
)

func SetupWSRoutes(router *gin.Engine, hub *ws.Hub) {
	router.GET("/ws", func(c *gin.Context) {
		hub.Handle(c.Writer, c.Request)
	})
}
