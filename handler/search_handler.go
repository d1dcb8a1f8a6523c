package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/service"
	"github.com/tieubaoca/arxiv-rag/types"
)

const maxSearchLimit = 50

type SearchHandler struct {
	embedder  service.Embedder
	retriever service.Retriever
	limit     int
}

func NewSearchHandler(embedder service.Embedder, retriever service.Retriever, defaultLimit int) *SearchHandler {
	return &SearchHandler{embedder: embedder, retriever: retriever, limit: defaultLimit}
}

type SearchResponse struct {
	Query   string             `json:"query"`
	Matches []types.QueryMatch `json:"matches"`
}

// HandleSearch returns the chunks nearest to ?q=, without generation.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		sendError(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := h.limit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSearchLimit {
			sendError(c, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	matches, err := h.search(c.Request.Context(), query, limit)
	if err != nil {
		logger.Error("search failed: %v", err)
		sendError(c, http.StatusBadGateway, "couldn't retrieve the associated text")
		return
	}
	if matches == nil {
		matches = []types.QueryMatch{}
	}
	sendSuccess(c, http.StatusOK, SearchResponse{Query: query, Matches: matches})
}

func (h *SearchHandler) search(ctx context.Context, query string, limit int) ([]types.QueryMatch, error) {
	embedding, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return h.retriever.Query(ctx, embedding, limit)
}
