package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseExpertiseLevel(t *testing.T) {
	l, ok := ParseExpertiseLevel("expert")
	assert.True(t, ok)
	assert.Equal(t, Expert, l)

	l, ok = ParseExpertiseLevel("wizard")
	assert.False(t, ok)
	assert.Equal(t, Intermediate, l)
}

func TestConversationTrim(t *testing.T) {
	c := NewConversationContext("")
	assert.Equal(t, Intermediate, c.Level)
	for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
		c.Append(RoleUser, s)
	}
	assert.True(t, c.Trim(4))
	assert.Len(t, c.Messages, 4)
	assert.Equal(t, "c", c.Messages[0].Content)
	assert.False(t, c.Trim(4))

	assert.True(t, c.DropOldest())
	assert.Equal(t, "d", c.Messages[0].Content)

	c.TotalTokens = 10
	c.Reset()
	assert.Empty(t, c.Messages)
	assert.Zero(t, c.TotalTokens)
	assert.False(t, c.DropOldest())
}

func TestConversationName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "notes_2024-03-05-07-08-09", ConversationName("notes", ts))
	assert.Equal(t, "conversation_2024-03-05-07-08-09", ConversationName(" ", ts))
}
