package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tieubaoca/arxiv-rag/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConversationStore persists conversation snapshots by name.
type ConversationStore interface {
	Save(ctx context.Context, conv types.SavedConversation) error
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (*types.SavedConversation, error)
	Close() error
}

type conversationRepo struct {
	collection *mongo.Collection
}

func NewConversationRepo(collection *mongo.Collection) ConversationStore {
	return &conversationRepo{
		collection: collection,
	}
}

func (r *conversationRepo) Save(ctx context.Context, conv types.SavedConversation) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": conv.Name}, conv, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conv.Name, err)
	}
	return nil
}

func (r *conversationRepo) List(ctx context.Context) ([]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().
			SetProjection(bson.M{"_id": 1}).
			SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var names []string
	for cursor.Next(ctx) {
		var doc struct {
			Name string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		names = append(names, doc.Name)
	}
	return names, cursor.Err()
}

func (r *conversationRepo) Load(ctx context.Context, name string) (*types.SavedConversation, error) {
	var conv types.SavedConversation
	err := r.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("conversation %s: %w", name, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", name, err)
	}
	return &conv, nil
}

func (r *conversationRepo) Close() error {
	return r.collection.Database().Client().Disconnect(context.Background())
}
