package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"timeledger/internal/model"
)

type ClockStore struct {
	coll *mongo.Collection
}

func NewClockStore(ctx context.Context, db *MongoDB) (*ClockStore, error) {
	sessions := db.Collection("clock_sessions")

	if _, err := sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// At most one open session per user.
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_open_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{Keys: bson.D{{Key: "open", Value: 1}, {Key: "clock_in_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "clock_in_at", Value: -1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create clock_sessions indexes")
	}

	return &ClockStore{coll: sessions}, nil
}

func (s *ClockStore) CreateSession(ctx context.Context, sess *model.ClockSession) error {
	if sess.ID.IsZero() {
		sess.ID = bson.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, sess)
	return writeErr(err, "insert clock session")
}

func (s *ClockStore) GetOpenSession(ctx context.Context, userID string) (*model.ClockSession, error) {
	var sess model.ClockSession
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID, "open": true}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find open session")
	}
	return &sess, nil
}

// ListOpenSessionsBefore returns open sessions that clocked in at or before the cutoff.
func (s *ClockStore) ListOpenSessionsBefore(ctx context.Context, before time.Time) ([]*model.ClockSession, error) {
	filter := bson.M{"open": true, "clock_in_at": bson.M{"$lte": before}}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "clock_in_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find stale sessions")
	}
	var results []*model.ClockSession
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode stale sessions")
	}
	return results, nil
}

// CloseSession flips an open session to closed. The open filter makes concurrent closes
// of the same session race on a single document; only one of them matches.
func (s *ClockStore) CloseSession(ctx context.Context, id bson.ObjectID, c model.SessionClose) (bool, error) {
	set := bson.M{
		"open":           false,
		"clock_out_at":   c.ClockOutAt,
		"description":    c.Description,
		"auto_clock_out": c.AutoClockOut,
		"acknowledged":   c.Acknowledged,
		"time_entry_id":  c.TimeEntryID,
	}
	if c.ProjectID != nil {
		set["project_id"] = *c.ProjectID
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id, "open": true}, bson.M{"$set": set})
	if err != nil {
		return false, errors.Wrap(err, "close clock session")
	}
	return res.MatchedCount > 0, nil
}

func (s *ClockStore) AcknowledgeAutoClose(ctx context.Context, userID string) (*model.ClockSession, error) {
	filter := bson.M{"user_id": userID, "auto_clock_out": true, "acknowledged": false}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "clock_out_at", Value: -1}}).
		SetReturnDocument(options.After)

	var sess model.ClockSession
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"acknowledged": true}}, opts).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "acknowledge auto clock-out")
	}

	// Older closures are superseded by the one being reported.
	if _, err := s.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"acknowledged": true}}); err != nil {
		return nil, errors.Wrap(err, "acknowledge older auto clock-outs")
	}
	return &sess, nil
}

// ListSessions returns the user's most recent sessions, newest first.
func (s *ClockStore) ListSessions(ctx context.Context, userID string, limit int) ([]*model.ClockSession, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "clock_in_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find clock sessions")
	}
	results := []*model.ClockSession{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode clock sessions")
	}
	return results, nil
}
