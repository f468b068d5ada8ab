package repository

import (
	"context"
	"kinship/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PreferencesRepo interface {
	Upsert(ctx context.Context, prefs *model.UserPreferences) error
	GetByUserID(ctx context.Context, userID string) (*model.UserPreferences, error)
}

type preferencesRepo struct {
	collection *mongo.Collection
}

func NewPreferencesRepo(db *mongo.Database) PreferencesRepo {
	return &preferencesRepo{
		collection: db.Collection(PreferencesCollection),
	}
}

func (r *preferencesRepo) Upsert(ctx context.Context, prefs *model.UserPreferences) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": prefs.UserID}, prefs, opts)
	return translate("preferences upsert", err)
}

func (r *preferencesRepo) GetByUserID(ctx context.Context, userID string) (*model.UserPreferences, error) {
	var prefs model.UserPreferences
	if err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&prefs); err != nil {
		return nil, translate("preferences get", err)
	}
	return &prefs, nil
}
