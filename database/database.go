package database

import (
	"context"

	"github.com/tieubaoca/arxiv-rag/types"
)

// VectorIndex is a similarity store over chunk embeddings. Adding an id that
// already exists overwrites it.
type VectorIndex interface {
	Add(ctx context.Context, id string, embedding []float32, metadata types.ChunkMetadata) error
	Query(ctx context.Context, embedding []float32, topK int) ([]types.QueryMatch, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// BatchAdder is implemented by indexes that can take many chunks per round
// trip. Chunks are applied in slice order.
type BatchAdder interface {
	AddBatch(ctx context.Context, chunks []types.Chunk) error
}
