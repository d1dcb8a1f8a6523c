package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Cors          *CorsHandler
	Stats         *StatsHandler
	Conversations *ConversationHandler
	Search        *SearchHandler
	Chat          *ChatHandler
}

func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(h.Cors.CorsMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/ws", h.Chat.HandleChat)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/stats", h.Stats.HandleStats)
		apiV1.GET("/search", h.Search.HandleSearch)
		apiV1.GET("/conversations", h.Conversations.HandleList)
		apiV1.GET("/conversations/:name", h.Conversations.HandleGet)
	}
	return router
}
