package repository

import (
	"context"
	"kinship/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared with BatchWrite ops.
const (
	ChatsCollection       = "chats"
	MessagesCollection    = "messages"
	ProfilesCollection    = "profiles"
	PreferencesCollection = "preferences"
	KeysCollection        = "user_keys"
)

type ChatRepo interface {
	Create(ctx context.Context, chat *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	ListByParticipant(ctx context.Context, userID string) ([]*model.Chat, error)
}

type chatRepo struct {
	collection *mongo.Collection
}

func NewChatRepo(db *mongo.Database) ChatRepo {
	return &chatRepo{
		collection: db.Collection(ChatsCollection),
	}
}

func (r *chatRepo) Create(ctx context.Context, chat *model.Chat) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": chat.ID}, chat, opts)
	return translate("chat create", err)
}

func (r *chatRepo) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if err != nil {
		return nil, translate("chat get", err)
	}
	return &chat, nil
}

func (r *chatRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, translate("chat list", err)
	}
	defer cursor.Close(ctx)

	chats := []*model.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, translate("chat list", err)
	}
	return chats, nil
}
