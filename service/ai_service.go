package service

import (
	"context"

	"github.com/tieubaoca/arxiv-rag/types"
)

// Embedder turns text into a vector. The same text must always yield the
// same vector for a given model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationRequest is one call to the generation endpoint. Documents is the
// rendered retrieval context; it is sent unchanged on every extension call.
type GenerationRequest struct {
	Documents string
	Prompt    string
	Options   types.GenerationOptions
}

type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
