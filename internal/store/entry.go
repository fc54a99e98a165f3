package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"timeledger/internal/model"
)

type EntryStore struct {
	coll *mongo.Collection
}

func NewEntryStore(ctx context.Context, db *MongoDB) (*EntryStore, error) {
	entries := db.Collection("time_entries")

	if _, err := entries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create time_entries indexes")
	}

	return &EntryStore{coll: entries}, nil
}

func (s *EntryStore) CreateEntry(ctx context.Context, e *model.TimeEntry) error {
	if e.ID.IsZero() {
		e.ID = bson.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, e)
	return writeErr(err, "insert time entry")
}

func (s *EntryStore) GetEntry(ctx context.Context, id bson.ObjectID) (*model.TimeEntry, error) {
	var e model.TimeEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find time entry")
	}
	return &e, nil
}

func entryFilter(f model.EntryFilter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.ProjectID != nil {
		filter["project_id"] = *f.ProjectID
	}
	dates := bson.M{}
	if f.StartDate != "" {
		dates["$gte"] = f.StartDate
	}
	if f.EndDate != "" {
		dates["$lte"] = f.EndDate
	}
	if len(dates) > 0 {
		filter["date"] = dates
	}
	if len(f.Types) > 0 {
		filter["entry_type"] = bson.M{"$in": f.Types}
	}
	return filter
}

// ListEntries returns matching entries, newest date first.
func (s *EntryStore) ListEntries(ctx context.Context, f model.EntryFilter) ([]*model.TimeEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, entryFilter(f), opts)
	if err != nil {
		return nil, errors.Wrap(err, "find time entries")
	}
	results := []*model.TimeEntry{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode time entries")
	}
	return results, nil
}

func (s *EntryStore) UpdateEntry(ctx context.Context, id bson.ObjectID, u model.EntryUpdate) error {
	set := bson.M{}
	if u.ProjectID != nil {
		set["project_id"] = *u.ProjectID
	}
	if u.Hours != nil {
		set["hours"] = *u.Hours
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.AddedByNote != nil {
		set["added_by_note"] = *u.AddedByNote
	}
	if len(set) == 0 {
		return nil
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return errors.Wrap(err, "update time entry")
}

func (s *EntryStore) DeleteEntry(ctx context.Context, id bson.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, errors.Wrap(err, "delete time entry")
	}
	return res.DeletedCount > 0, nil
}

// SumHours totals the hours of matching entries on the server.
func (s *EntryStore) SumHours(ctx context.Context, f model.EntryFilter) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: entryFilter(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$hours"}}},
		}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "aggregate logged hours")
	}
	var rows []struct {
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode logged hours")
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[0].Total, nil
}
