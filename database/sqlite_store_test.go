package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/arxiv-rag/types"
)

func newTestStore(t *testing.T) *MetadataStore {
	t.Helper()
	s, err := NewMetadataStore(filepath.Join(t.TempDir(), "db", "arxiv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, updated string) types.Record {
	return types.Record{
		ID:        "http://arxiv.org/abs/" + id,
		Title:     "Paper " + id,
		Summary:   "About " + id,
		Author:    "A. Author",
		Published: "2024-01-01T00:00:00Z",
		Updated:   updated,
		PDFLink:   "http://arxiv.org/pdf/" + id,
	}
}

func TestSyncInsertsNewRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	res, err := s.Sync(ctx, []types.Record{record("1", "2024-01-01"), record("2", "2024-01-02")})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{New: 2}, res)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	ids := []string{all[0].ID, all[1].ID}
	assert.ElementsMatch(t, []string{"http://arxiv.org/abs/1", "http://arxiv.org/abs/2"}, ids)
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	batch := []types.Record{record("1", "2024-01-01"), record("2", "2024-01-02")}

	_, err := s.Sync(ctx, batch)
	require.NoError(t, err)
	res, err := s.Sync(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSyncUpdatesChangedRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Sync(ctx, []types.Record{record("1", "2024-01-01")})
	require.NoError(t, err)

	changed := record("1", "2024-02-01")
	changed.Title = "Revised title"
	changed.Summary = "Revised summary"
	res, err := s.Sync(ctx, []types.Record{changed})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Updated: 1}, res)

	got, err := s.Get(ctx, changed.ID)
	require.NoError(t, err)
	assert.Equal(t, changed, *got)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncSkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bad := record("2", "2024-01-01")
	bad.PDFLink = ""
	res, err := s.Sync(ctx, []types.Record{record("1", "2024-01-01"), bad, record("3", "2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{New: 2, Failed: 1}, res)
}

func TestSyncDuplicateIDInOneBatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	res, err := s.Sync(ctx, []types.Record{record("1", "2024-01-01"), record("1", "2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{New: 1}, res)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestReopenKeepsRowsAndSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "arxiv.db")

	s, err := NewMetadataStore(path)
	require.NoError(t, err)
	_, err = s.Sync(ctx, []types.Record{record("1", "2024-01-01")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewMetadataStore(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListLimitOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	older := record("1", "2024-01-01")
	older.Published = "2023-01-01T00:00:00Z"
	newer := record("2", "2024-01-01")
	newer.Published = "2024-06-01T00:00:00Z"
	_, err := s.Sync(ctx, []types.Record{older, newer})
	require.NoError(t, err)

	got, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newer.ID, got[0].ID)
}
