package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/arxiv-rag/types"
)

func TestMemoryIndexQueryRanks(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Add(ctx, "x", []float32{1, 0}, types.ChunkMetadata{Title: "X"}))
	require.NoError(t, idx.Add(ctx, "y", []float32{0, 1}, types.ChunkMetadata{Title: "Y"}))
	require.NoError(t, idx.Add(ctx, "xy", []float32{1, 1}, types.ChunkMetadata{Title: "XY"}))

	got, err := idx.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].ID)
	assert.Equal(t, "xy", got[1].ID)
	assert.Less(t, got[0].Distance, got[1].Distance)
	assert.Equal(t, "X", got[0].Metadata.Title)
}

func TestMemoryIndexEmptyAndDuplicate(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	got, err := idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, idx.Add(ctx, "a", []float32{1, 0}, types.ChunkMetadata{Text: "old"}))
	require.NoError(t, idx.Add(ctx, "a", []float32{0, 1}, types.ChunkMetadata{Text: "new"}))
	n, _ := idx.Count(ctx)
	assert.Equal(t, 1, n)

	got, err = idx.Query(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", got[0].Metadata.Text)

	assert.Error(t, idx.Add(ctx, "b", []float32{1, 0, 0}, types.ChunkMetadata{}))
	assert.Error(t, idx.Add(ctx, "c", nil, types.ChunkMetadata{}))
}

func TestLocalIndexPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.bolt")

	idx, err := OpenLocalIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, "id_chunk_1", []float32{0.5, 0.5}, types.ChunkMetadata{ChunkIndex: 1}))
	require.NoError(t, idx.Close())

	idx, err = OpenLocalIndex(path)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := idx.Query(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Metadata.ChunkIndex)
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
}

func TestLocalIndexReset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.bolt")

	idx, err := OpenLocalIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, "a_chunk_1", []float32{1, 0}, types.ChunkMetadata{}))
	require.NoError(t, idx.Reset(ctx))
	// a different dimension is fine once the index is empty
	require.NoError(t, idx.Add(ctx, "b_chunk_1", []float32{1, 0, 0}, types.ChunkMetadata{}))
	require.NoError(t, idx.Close())

	idx, err = OpenLocalIndex(path)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
