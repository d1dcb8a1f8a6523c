package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

type ConversationReader interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (*types.SavedConversation, error)
}

type ConversationHandler struct {
	conversations ConversationReader
}

func NewConversationHandler(conversations ConversationReader) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func (h *ConversationHandler) HandleList(c *gin.Context) {
	names, err := h.conversations.List(c.Request.Context())
	if err != nil {
		logger.Error("failed to list conversations: %v", err)
		sendError(c, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if names == nil {
		names = []string{}
	}
	sendSuccess(c, http.StatusOK, types.ConversationListResponse{Names: names})
}

func (h *ConversationHandler) HandleGet(c *gin.Context) {
	conv, err := h.conversations.Load(c.Request.Context(), c.Param("name"))
	if errors.Is(err, types.ErrNotFound) {
		sendError(c, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		logger.Error("failed to load conversation: %v", err)
		sendError(c, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	sendSuccess(c, http.StatusOK, conv)
}
