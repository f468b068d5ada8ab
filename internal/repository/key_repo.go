package repository

import (
	"context"
	"kinship/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type KeyRepo interface {
	Upsert(ctx context.Context, key *model.UserKey) error
	GetMany(ctx context.Context, userIDs []string) (map[string][]byte, error)
}

type keyRepo struct {
	collection *mongo.Collection
}

func NewKeyRepo(db *mongo.Database) KeyRepo {
	return &keyRepo{
		collection: db.Collection(KeysCollection),
	}
}

func (r *keyRepo) Upsert(ctx context.Context, key *model.UserKey) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key.UserID}, key, opts)
	return translate("key upsert", err)
}

// GetMany returns the public keys that exist; users without a published key are absent
func (r *keyRepo) GetMany(ctx context.Context, userIDs []string) (map[string][]byte, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, translate("key list", err)
	}
	defer cursor.Close(ctx)

	var keys []model.UserKey
	if err := cursor.All(ctx, &keys); err != nil {
		return nil, translate("key list", err)
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		out[k.UserID] = k.PublicKey
	}
	return out, nil
}
