package store

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"timeledger/internal/model"
)

type HolidayStore struct {
	holidays    *mongo.Collection
	assignments *mongo.Collection
}

func NewHolidayStore(ctx context.Context, db *MongoDB) (*HolidayStore, error) {
	holidays := db.Collection("paid_holidays")
	assignments := db.Collection("paid_holiday_assignments")

	if _, err := holidays.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create paid_holidays indexes")
	}

	if _, err := assignments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "paid_holiday_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create paid_holiday_assignments indexes")
	}

	return &HolidayStore{holidays: holidays, assignments: assignments}, nil
}

func (s *HolidayStore) CreateHoliday(ctx context.Context, h *model.PaidHoliday) error {
	if h.ID.IsZero() {
		h.ID = bson.NewObjectID()
	}
	_, err := s.holidays.InsertOne(ctx, h)
	return writeErr(err, "insert paid holiday")
}

func (s *HolidayStore) GetHoliday(ctx context.Context, id bson.ObjectID) (*model.PaidHoliday, error) {
	var h model.PaidHoliday
	err := s.holidays.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find paid holiday")
	}
	return &h, nil
}

func (s *HolidayStore) ListHolidays(ctx context.Context, ids []bson.ObjectID) ([]*model.PaidHoliday, error) {
	filter := bson.M{}
	if ids != nil {
		filter["_id"] = bson.M{"$in": ids}
	}
	cursor, err := s.holidays.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find paid holidays")
	}
	results := []*model.PaidHoliday{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode paid holidays")
	}
	return results, nil
}

func (s *HolidayStore) UpdateHoliday(ctx context.Context, id bson.ObjectID, u model.HolidayUpdate) error {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Date != nil {
		set["date"] = *u.Date
	}
	if u.Hours != nil {
		set["hours"] = *u.Hours
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if len(set) == 0 {
		return nil
	}
	_, err := s.holidays.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return errors.Wrap(err, "update paid holiday")
}

func (s *HolidayStore) DeleteHoliday(ctx context.Context, id bson.ObjectID) error {
	_, err := s.holidays.DeleteOne(ctx, bson.M{"_id": id})
	return errors.Wrap(err, "delete paid holiday")
}

func (s *HolidayStore) CreateAssignment(ctx context.Context, a *model.PaidHolidayAssignment) error {
	if a.ID.IsZero() {
		a.ID = bson.NewObjectID()
	}
	_, err := s.assignments.InsertOne(ctx, a)
	return writeErr(err, "insert holiday assignment")
}

func (s *HolidayStore) DeleteAssignment(ctx context.Context, holidayID bson.ObjectID, userID string) error {
	_, err := s.assignments.DeleteOne(ctx, bson.M{"paid_holiday_id": holidayID, "user_id": userID})
	return errors.Wrap(err, "delete holiday assignment")
}

func (s *HolidayStore) DeleteAssignments(ctx context.Context, holidayID bson.ObjectID) error {
	_, err := s.assignments.DeleteMany(ctx, bson.M{"paid_holiday_id": holidayID})
	return errors.Wrap(err, "delete holiday assignments")
}

func (s *HolidayStore) ListAssignments(ctx context.Context, holidayID bson.ObjectID) ([]*model.PaidHolidayAssignment, error) {
	return s.findAssignments(ctx, bson.M{"paid_holiday_id": holidayID})
}

func (s *HolidayStore) ListUserAssignments(ctx context.Context, userID string) ([]*model.PaidHolidayAssignment, error) {
	return s.findAssignments(ctx, bson.M{"user_id": userID})
}

func (s *HolidayStore) findAssignments(ctx context.Context, filter bson.M) ([]*model.PaidHolidayAssignment, error) {
	cursor, err := s.assignments.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "assigned_at", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find holiday assignments")
	}
	results := []*model.PaidHolidayAssignment{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode holiday assignments")
	}
	return results, nil
}
