package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/arxiv-rag/database"
	"github.com/tieubaoca/arxiv-rag/types"
)

func TestConversationRepo(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx := context.Background()
	client, err := database.NewMongoClient(ctx, uri)
	require.NoError(t, err)

	coll := client.Database("arxiv_rag_test").Collection("conversations_" + uuid.NewString())
	repo := NewConversationRepo(coll)
	t.Cleanup(func() {
		coll.Drop(context.Background())
		repo.Close()
	})

	ts := time.Now().UTC().Truncate(time.Millisecond)
	conv := types.SavedConversation{
		Name:           types.ConversationName("bell", ts),
		Timestamp:      ts,
		ExpertiseLevel: types.Beginner,
		Messages:       []types.Message{{Role: types.RoleUser, Content: "hi"}},
	}
	require.NoError(t, repo.Save(ctx, conv))
	require.NoError(t, repo.Save(ctx, conv))

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{conv.Name}, names)

	got, err := repo.Load(ctx, conv.Name)
	require.NoError(t, err)
	assert.Equal(t, conv.Messages, got.Messages)
	assert.True(t, ts.Equal(got.Timestamp))

	_, err = repo.Load(ctx, "missing")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}
