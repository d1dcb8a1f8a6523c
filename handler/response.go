package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/arxiv-rag/types"
)

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, types.DataResponse{
		Status:  "error",
		Message: message,
	})
}

func sendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, types.DataResponse{
		Status: "success",
		Data:   data,
	})
}
