package types

import (
	"strings"
	"time"
)

const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// Message represents a single message in the conversation
type Message struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

type ExpertiseLevel string

const (
	Beginner     ExpertiseLevel = "Beginner"
	Intermediate ExpertiseLevel = "Intermediate"
	Advanced     ExpertiseLevel = "Advanced"
	Expert       ExpertiseLevel = "Expert"
)

// ExpertiseLevels lists the levels from least to most technical.
func ExpertiseLevels() []ExpertiseLevel {
	return []ExpertiseLevel{Beginner, Intermediate, Advanced, Expert}
}

// ParseExpertiseLevel matches s case-insensitively. Unknown values map to
// Intermediate and ok is false.
func ParseExpertiseLevel(s string) (level ExpertiseLevel, ok bool) {
	for _, l := range ExpertiseLevels() {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, true
		}
	}
	return Intermediate, false
}

// ConversationContext is the state of one chat session. It is owned by the
// caller (CLI loop or websocket connection) and passed into the answerer.
type ConversationContext struct {
	Level       ExpertiseLevel `json:"expertise_level"`
	Messages    []Message      `json:"messages"`
	TotalTokens int            `json:"total_tokens"`
}

func NewConversationContext(level ExpertiseLevel) *ConversationContext {
	if level == "" {
		level = Intermediate
	}
	return &ConversationContext{Level: level}
}

func (c *ConversationContext) Append(role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
}

// Trim keeps the most recent keep messages and reports whether anything
// was dropped.
func (c *ConversationContext) Trim(keep int) bool {
	if keep < 0 {
		keep = 0
	}
	if len(c.Messages) <= keep {
		return false
	}
	c.Messages = append([]Message(nil), c.Messages[len(c.Messages)-keep:]...)
	return true
}

// DropOldest removes the first message.
func (c *ConversationContext) DropOldest() bool {
	if len(c.Messages) == 0 {
		return false
	}
	c.Messages = append([]Message(nil), c.Messages[1:]...)
	return true
}

func (c *ConversationContext) Reset() {
	c.Messages = nil
	c.TotalTokens = 0
}

// SavedConversation is a conversation snapshot written on demand.
type SavedConversation struct {
	Name           string         `json:"name" bson:"_id"`
	Timestamp      time.Time      `json:"timestamp" bson:"timestamp"`
	ExpertiseLevel ExpertiseLevel `json:"expertise_level" bson:"expertise_level"`
	Messages       []Message      `json:"messages" bson:"messages"`
}

// ConversationName builds the storage key of a snapshot.
func ConversationName(base string, ts time.Time) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "conversation"
	}
	return base + "_" + ts.Format("2006-01-02-15-04-05")
}
