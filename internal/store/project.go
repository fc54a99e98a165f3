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

// ProjectStore persists projects, their append-only budget adjustments and memberships.
type ProjectStore struct {
	projects    *mongo.Collection
	adjustments *mongo.Collection
	members     *mongo.Collection
}

func NewProjectStore(ctx context.Context, db *MongoDB) (*ProjectStore, error) {
	projects := db.Collection("projects")
	adjustments := db.Collection("budget_adjustments")
	members := db.Collection("project_members")

	if _, err := projects.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create projects indexes")
	}

	if _, err := adjustments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create budget_adjustments indexes")
	}

	if _, err := members.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}); err != nil {
		return nil, errors.Wrap(err, "create project_members indexes")
	}

	return &ProjectStore{projects: projects, adjustments: adjustments, members: members}, nil
}

func (s *ProjectStore) CreateProject(ctx context.Context, p *model.Project) error {
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	_, err := s.projects.InsertOne(ctx, p)
	return writeErr(err, "insert project")
}

func (s *ProjectStore) GetProject(ctx context.Context, id bson.ObjectID) (*model.Project, error) {
	var p model.Project
	err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	return &p, nil
}

func (s *ProjectStore) ListProjects(ctx context.Context, ids []bson.ObjectID) ([]*model.Project, error) {
	filter := bson.M{}
	if ids != nil {
		filter["_id"] = bson.M{"$in": ids}
	}
	cursor, err := s.projects.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find projects")
	}
	results := []*model.Project{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode projects")
	}
	return results, nil
}

func (s *ProjectStore) UpdateProject(ctx context.Context, id bson.ObjectID, u model.ProjectUpdate) error {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Code != nil {
		set["code"] = *u.Code
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if len(set) == 0 {
		return nil
	}
	_, err := s.projects.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return writeErr(err, "update project")
}

// SetBudget is a compare-and-set on budget_version.
func (s *ProjectStore) SetBudget(ctx context.Context, id bson.ObjectID, expectedVersion int64, newBudget decimal.Decimal) (bool, error) {
	filter := bson.M{"_id": id, "budget_version": expectedVersion}
	update := bson.M{
		"$set": bson.M{"hours_budget": newBudget},
		"$inc": bson.M{"budget_version": 1},
	}
	res, err := s.projects.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, errors.Wrap(err, "set project budget")
	}
	return res.MatchedCount > 0, nil
}

func (s *ProjectStore) CreateAdjustment(ctx context.Context, a *model.BudgetAdjustment) error {
	if a.ID.IsZero() {
		a.ID = bson.NewObjectID()
	}
	_, err := s.adjustments.InsertOne(ctx, a)
	return writeErr(err, "insert budget adjustment")
}

func (s *ProjectStore) DeleteAdjustment(ctx context.Context, id bson.ObjectID) error {
	_, err := s.adjustments.DeleteOne(ctx, bson.M{"_id": id})
	return errors.Wrap(err, "delete budget adjustment")
}

// ListAdjustments returns the project's ledger in creation order.
func (s *ProjectStore) ListAdjustments(ctx context.Context, projectID bson.ObjectID) ([]*model.BudgetAdjustment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.adjustments.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find budget adjustments")
	}
	results := []*model.BudgetAdjustment{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode budget adjustments")
	}
	return results, nil
}

func (s *ProjectStore) AddMember(ctx context.Context, m *model.ProjectMember) error {
	_, err := s.members.InsertOne(ctx, m)
	return writeErr(err, "insert project member")
}

func (s *ProjectStore) RemoveMember(ctx context.Context, projectID bson.ObjectID, userID string) error {
	_, err := s.members.DeleteOne(ctx, bson.M{"project_id": projectID, "user_id": userID})
	return errors.Wrap(err, "delete project member")
}

func (s *ProjectStore) ListMembers(ctx context.Context, projectID bson.ObjectID) ([]*model.ProjectMember, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assigned_at", Value: 1}})
	cursor, err := s.members.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find project members")
	}
	results := []*model.ProjectMember{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "decode project members")
	}
	return results, nil
}

func (s *ProjectStore) ListMemberProjectIDs(ctx context.Context, userID string) ([]bson.ObjectID, error) {
	cursor, err := s.members.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Wrap(err, "find memberships")
	}
	var rows []*model.ProjectMember
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode memberships")
	}
	ids := make([]bson.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProjectID)
	}
	return ids, nil
}

func (s *ProjectStore) IsMember(ctx context.Context, projectID bson.ObjectID, userID string) (bool, error) {
	n, err := s.members.CountDocuments(ctx, bson.M{"project_id": projectID, "user_id": userID})
	if err != nil {
		return false, errors.Wrap(err, "count memberships")
	}
	return n > 0, nil
}
