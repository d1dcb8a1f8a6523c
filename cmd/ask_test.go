package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/arxiv-rag/database"
	"github.com/tieubaoca/arxiv-rag/service"
	"github.com/tieubaoca/arxiv-rag/types"
)

type scriptedAnswerer struct {
	questions []string
	levels    []types.ExpertiseLevel
}

func (s *scriptedAnswerer) Ask(_ context.Context, conv *types.ConversationContext, q string) *service.Result {
	s.questions = append(s.questions, q)
	s.levels = append(s.levels, conv.Level)
	answer := "answer to " + q
	conv.Append(types.RoleUser, q)
	conv.Append(types.RoleSystem, answer)
	conv.TotalTokens += 10
	return &service.Result{Answer: answer, State: service.StateDone}
}

func TestAskSession(t *testing.T) {
	store, err := database.NewBoltConversationStore(filepath.Join(t.TempDir(), "conversations.bolt"))
	require.NoError(t, err)
	conversations := service.NewConversationService(store)
	defer conversations.Close()

	answerer := &scriptedAnswerer{}
	var out bytes.Buffer
	s := &askSession{
		answerer:      answerer,
		conversations: conversations,
		conv:          types.NewConversationContext(types.Beginner),
		out:           &out,
	}

	input := strings.Join([]string{
		"What is a qubit?",
		"/tokens",
		"/level expert",
		"And a gate?",
		"/save gates",
		"/reset",
		"/tokens",
		"/level wizard",
		"/bogus",
		"/quit",
		"never asked",
	}, "\n")
	require.NoError(t, s.run(context.Background(), strings.NewReader(input)))

	assert.Equal(t, []string{"What is a qubit?", "And a gate?"}, answerer.questions)
	assert.Equal(t, []types.ExpertiseLevel{types.Beginner, types.Expert}, answerer.levels)

	text := out.String()
	assert.Contains(t, text, "answer to What is a qubit?")
	assert.Contains(t, text, "10 tokens")
	assert.Contains(t, text, "Conversation saved: gates_")
	assert.Contains(t, text, "0 tokens")
	assert.Contains(t, text, `Unknown level "wizard"`)
	assert.Contains(t, text, "Unknown command /bogus")
	assert.Empty(t, s.conv.Messages)

	names, err := conversations.List(context.Background())
	require.NoError(t, err)
	require.Len(t, names, 1)

	// load it back into the session
	out.Reset()
	require.NoError(t, s.run(context.Background(), strings.NewReader("/load "+names[0]+"\n")))
	assert.Len(t, s.conv.Messages, 4)
	assert.Equal(t, types.Expert, s.conv.Level)
}
