package store

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"timeledger/internal/model"
)

// UserStore reads the users collection maintained by the identity service.
type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *MongoDB) *UserStore {
	return &UserStore{coll: db.Collection("users")}
}

func (s *UserStore) GetUsers(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *UserStore) ListActiveUsers(ctx context.Context) ([]*model.User, error) {
	return s.find(ctx, bson.M{"status": model.UserStatusActive})
}

func (s *UserStore) find(ctx context.Context, filter bson.M) ([]*model.User, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	results := []*model.User{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return results, nil
}

// UpsertUser writes a user record. The identity service owns these documents; this is
// used to seed local and test databases.
func (s *UserStore) UpsertUser(ctx context.Context, u *model.User) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, u, options.Replace().SetUpsert(true))
	return errors.Wrap(err, "upsert user")
}
