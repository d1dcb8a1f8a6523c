package service

import (
	"context"
	"errors"
	"time"

	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/repository"
	"github.com/tieubaoca/arxiv-rag/types"
)

var ErrEmptyConversation = errors.New("conversation has no messages")

type ConversationService struct {
	store repository.ConversationStore
	now   func() time.Time
}

func NewConversationService(store repository.ConversationStore) *ConversationService {
	return &ConversationService{store: store, now: time.Now}
}

// Save snapshots conv under name suffixed with the current time and returns
// the stored name.
func (s *ConversationService) Save(ctx context.Context, name string, conv *types.ConversationContext) (string, error) {
	if len(conv.Messages) == 0 {
		return "", ErrEmptyConversation
	}
	ts := s.now()
	saved := types.SavedConversation{
		Name:           types.ConversationName(name, ts),
		Timestamp:      ts,
		ExpertiseLevel: conv.Level,
		Messages:       append([]types.Message(nil), conv.Messages...),
	}
	if err := s.store.Save(ctx, saved); err != nil {
		return "", err
	}
	logger.Info("conversation saved: %s", saved.Name)
	return saved.Name, nil
}

func (s *ConversationService) List(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

func (s *ConversationService) Load(ctx context.Context, name string) (*types.SavedConversation, error) {
	return s.store.Load(ctx, name)
}

// Restore loads a snapshot as a live conversation. Token counts start over.
func (s *ConversationService) Restore(ctx context.Context, name string) (*types.ConversationContext, error) {
	saved, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	conv := types.NewConversationContext(saved.ExpertiseLevel)
	conv.Messages = saved.Messages
	return conv, nil
}

func (s *ConversationService) Close() error {
	return s.store.Close()
}
