package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/arxiv-rag/service"
)

type ChatHandler struct {
	ws *service.WebSocketService
}

func NewChatHandler(ws *service.WebSocketService) *ChatHandler {
	return &ChatHandler{ws: ws}
}

func (h *ChatHandler) HandleChat(c *gin.Context) {
	h.ws.HandleChat(c.Writer, c.Request)
}
