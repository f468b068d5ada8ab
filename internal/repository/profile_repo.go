package repository

import (
	"context"
	"kinship/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProfileRepo interface {
	Upsert(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	ListAnonymous(ctx context.Context, limit int) ([]*model.Profile, error)
}

type profileRepo struct {
	collection *mongo.Collection
}

func NewProfileRepo(db *mongo.Database) ProfileRepo {
	return &profileRepo{
		collection: db.Collection(ProfilesCollection),
	}
}

func (r *profileRepo) Upsert(ctx context.Context, profile *model.Profile) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": profile.ID}, profile, opts)
	return translate("profile upsert", err)
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&profile); err != nil {
		return nil, translate("profile get", err)
	}
	return &profile, nil
}

// ListAnonymous returns anonymous profiles in a stable order so matching is deterministic
func (r *profileRepo) ListAnonymous(ctx context.Context, limit int) ([]*model.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"anonymous": true}, opts)
	if err != nil {
		return nil, translate("profile list", err)
	}
	defer cursor.Close(ctx)

	profiles := []*model.Profile{}
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, translate("profile list", err)
	}
	return profiles, nil
}
