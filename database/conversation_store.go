package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tieubaoca/arxiv-rag/types"
	"go.etcd.io/bbolt"
)

var bucketConversations = []byte("conversations")

// BoltConversationStore keeps saved conversations as JSON values keyed by name.
type BoltConversationStore struct {
	db *bbolt.DB
}

func NewBoltConversationStore(path string) (*BoltConversationStore, error) {
	db, err := openBolt(path, bucketConversations)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}
	return &BoltConversationStore{db: db}, nil
}

func (s *BoltConversationStore) Save(_ context.Context, conv types.SavedConversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConversations).Put([]byte(conv.Name), data)
	})
}

func (s *BoltConversationStore) List(_ context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *BoltConversationStore) Load(_ context.Context, name string) (*types.SavedConversation, error) {
	var conv types.SavedConversation
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketConversations).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("conversation %s: %w", name, types.ErrNotFound)
		}
		return json.Unmarshal(data, &conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *BoltConversationStore) Close() error {
	return s.db.Close()
}
