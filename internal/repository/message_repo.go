package repository

import (
	"context"
	"kinship/internal/model"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	Insert(ctx context.Context, msg *model.Message) error
	// ListByChat returns up to limit of the most recent messages, oldest first.
	ListByChat(ctx context.Context, chatID string, limit int) ([]*model.Message, error)
}

type messageRepo struct {
	collection *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepo{
		collection: db.Collection(MessagesCollection),
	}
}

func (r *messageRepo) Insert(ctx context.Context, msg *model.Message) error {
	_, err := r.collection.InsertOne(ctx, msg)
	return translate("message insert", err)
}

func (r *messageRepo) ListByChat(ctx context.Context, chatID string, limit int) ([]*model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, translate("message list", err)
	}
	defer cursor.Close(ctx)

	messages := []*model.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, translate("message list", err)
	}
	slices.Reverse(messages)
	return messages, nil
}
