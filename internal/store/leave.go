package store

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"timeledger/internal/model"
)

type LeaveStore struct {
	coll *mongo.Collection
}

func NewLeaveStore(ctx context.Context, db *MongoDB) (*LeaveStore, error) {
	leave := db.Collection("leave_requests")

	if _, err := leave.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create leave_requests indexes")
	}

	return &LeaveStore{coll: leave}, nil
}

func (s *LeaveStore) CreateLeave(ctx context.Context, req *model.LeaveRequest) error {
	if req.ID.IsZero() {
		req.ID = bson.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, req)
	return writeErr(err, "insert leave request")
}

func (s *LeaveStore) GetLeave(ctx context.Context, id bson.ObjectID) (*model.LeaveRequest, error) {
	var req model.LeaveRequest
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find leave request")
	}
	return &req, nil
}

// ListLeaves returns matching requests, oldest first.
func (s *LeaveStore) ListLeaves(ctx context.Context, f model.LeaveFilter) ([]*model.LeaveRequest, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find leave requests")
	}
	results := []*model.LeaveRequest{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode leave requests")
	}
	return results, nil
}

func (s *LeaveStore) ReviewLeave(ctx context.Context, id bson.ObjectID, r model.LeaveReview) (bool, error) {
	set := bson.M{
		"status":      r.Status,
		"reviewed_by": r.ReviewedBy,
		"reviewed_at": r.ReviewedAt,
	}
	if r.ReviewNote != "" {
		set["review_note"] = r.ReviewNote
	}
	if r.TimeEntryID != nil {
		set["time_entry_id"] = *r.TimeEntryID
	}
	filter := bson.M{"_id": id, "status": model.LeaveStatusPending}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, errors.Wrap(err, "review leave request")
	}
	return res.MatchedCount > 0, nil
}

func (s *LeaveStore) DeletePendingLeave(ctx context.Context, id bson.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "status": model.LeaveStatusPending})
	if err != nil {
		return false, errors.Wrap(err, "delete leave request")
	}
	return res.DeletedCount > 0, nil
}
