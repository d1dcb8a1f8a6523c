package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Sizer interface {
	Len() int
}

type StatsHandler struct {
	records   Counter
	processed Sizer
	index     Counter
}

func NewStatsHandler(records Counter, processed Sizer, index Counter) *StatsHandler {
	return &StatsHandler{records: records, processed: processed, index: index}
}

func (h *StatsHandler) HandleStats(c *gin.Context) {
	records, err := h.records.Count(c.Request.Context())
	if err != nil {
		logger.Error("failed to count records: %v", err)
		sendError(c, http.StatusInternalServerError, "failed to count records")
		return
	}
	indexed, err := h.index.Count(c.Request.Context())
	if err != nil {
		logger.Error("failed to count index: %v", err)
		sendError(c, http.StatusServiceUnavailable, "vector index unavailable")
		return
	}
	sendSuccess(c, http.StatusOK, types.StatsResponse{
		Records:   records,
		Processed: h.processed.Len(),
		Indexed:   indexed,
	})
}
