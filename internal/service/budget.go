package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
	"timeledger/internal/model"
)

const (
	InitialBudgetReason = "Initial budget allocation"

	// maxBudgetAttempts bounds the optimistic retry loop of AdjustBudget.
	maxBudgetAttempts = 5
)

var errBudgetMoved = errors.New("budget changed concurrently")

// ProjectService owns projects, their membership and the append-only budget ledger.
type ProjectService struct {
	tx       Tx
	projects ProjectStore
	entries  EntryStore
	opts     options
}

func NewProjectService(tx Tx, projects ProjectStore, entries EntryStore, opts ...Option) *ProjectService {
	return &ProjectService{tx: tx, projects: projects, entries: entries, opts: newOptions(opts)}
}

type CreateProjectInput struct {
	Name        string
	Code        string
	Description string
	HoursBudget decimal.Decimal
}

type UpdateProjectInput struct {
	Name        *string
	Code        *string
	Description *string
	Status      *model.ProjectStatus
}

type AdjustmentResult struct {
	PreviousBudget decimal.Decimal         `json:"previousBudget"`
	NewBudget      decimal.Decimal         `json:"newBudget"`
	Adjustment     *model.BudgetAdjustment `json:"adjustment"`
}

// List returns all projects for admins and assigned projects for members.
func (s *ProjectService) List(ctx context.Context, caller auth.Caller) ([]*model.Project, error) {
	var ids []bson.ObjectID
	if !caller.IsAdmin() {
		var err error
		ids, err = s.projects.ListMemberProjectIDs(ctx, caller.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "list member projects")
		}
		if len(ids) == 0 {
			return []*model.Project{}, nil
		}
	}
	projects, err := s.projects.ListProjects(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	return projects, nil
}

// Create adds a project. A non-zero starting budget is recorded as the first ledger entry.
func (s *ProjectService) Create(ctx context.Context, caller auth.Caller, in CreateProjectInput) (*model.Project, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	if in.Name == "" || in.Code == "" {
		return nil, apperr.Validation("project.err.name_code_required")
	}
	budget := in.HoursBudget.Round(2)
	if budget.IsNegative() {
		return nil, apperr.Validation("project.err.negative_budget")
	}

	now := s.opts.now()
	project := &model.Project{
		ID:          bson.NewObjectID(),
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
		Status:      model.ProjectStatusActive,
		HoursBudget: budget,
		CreatedAt:   now,
	}

	initial := &model.BudgetAdjustment{
		ID:               bson.NewObjectID(),
		ProjectID:        project.ID,
		AdjustedBy:       caller.UserID,
		AdjustmentAmount: budget,
		PreviousBudget:   decimal.Zero,
		NewBudget:        budget,
		Reason:           InitialBudgetReason,
		CreatedAt:        now,
	}
	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		if !budget.IsZero() {
			if err := s.projects.CreateAdjustment(ctx, initial); err != nil {
				return errors.Wrap(err, "create initial adjustment")
			}
		}
		err := s.projects.CreateProject(ctx, project)
		if err == nil {
			return nil
		}
		if !budget.IsZero() {
			s.discardAdjustment(ctx, initial.ID)
		}
		if errors.Is(err, model.ErrDuplicate) {
			return apperr.Conflict("project.err.code_taken", map[string]any{"Code": in.Code})
		}
		return errors.Wrap(err, "create project")
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Get returns the project with its utilization over entries dated within [startDate, endDate].
func (s *ProjectService) Get(ctx context.Context, caller auth.Caller, id bson.ObjectID, startDate, endDate string) (*model.Utilization, error) {
	project, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		member, err := s.projects.IsMember(ctx, id, caller.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "check project membership")
		}
		if !member {
			return nil, apperr.NotFound("project.err.not_found")
		}
	}

	logged, err := s.entries.SumHours(ctx, model.EntryFilter{ProjectID: &id, StartDate: startDate, EndDate: endDate})
	if err != nil {
		return nil, errors.Wrap(err, "sum logged hours")
	}
	return Utilize(project, logged), nil
}

// Utilize derives remaining hours and percent used from a budget and logged hours.
func Utilize(project *model.Project, logged decimal.Decimal) *model.Utilization {
	u := &model.Utilization{
		Project:        project,
		LoggedHours:    logged,
		RemainingHours: project.HoursBudget.Sub(logged),
	}
	if project.HoursBudget.IsPositive() {
		u.PercentUsed = logged.Div(project.HoursBudget).Mul(hundred).Round(0).IntPart()
	}
	return u
}

func (s *ProjectService) Update(ctx context.Context, caller auth.Caller, id bson.ObjectID, in UpdateProjectInput) (*model.Project, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	project, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var u model.ProjectUpdate
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		name := strings.TrimSpace(*in.Name)
		u.Name, project.Name = &name, name
	}
	if in.Code != nil && strings.TrimSpace(*in.Code) != "" {
		code := strings.TrimSpace(*in.Code)
		u.Code, project.Code = &code, code
	}
	if in.Description != nil {
		u.Description, project.Description = in.Description, *in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Validation("project.err.invalid_status")
		}
		u.Status, project.Status = in.Status, *in.Status
	}

	err = s.projects.UpdateProject(ctx, id, u)
	if errors.Is(err, model.ErrDuplicate) {
		return nil, apperr.Conflict("project.err.code_taken", map[string]any{"Code": project.Code})
	}
	if err != nil {
		return nil, errors.Wrap(err, "update project")
	}
	return project, nil
}

// AdjustBudget appends an adjustment and moves the running budget by amount. The
// read-modify-write is guarded by the project's budget version and retried on conflict.
func (s *ProjectService) AdjustBudget(ctx context.Context, caller auth.Caller, id bson.ObjectID, amount *decimal.Decimal, reason string) (*AdjustmentResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if amount == nil || reason == "" {
		return nil, apperr.Validation("project.err.amount_reason_required")
	}
	delta := amount.Round(2)

	for attempt := 0; attempt < maxBudgetAttempts; attempt++ {
		project, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}

		adj := &model.BudgetAdjustment{
			ID:               bson.NewObjectID(),
			ProjectID:        id,
			AdjustedBy:       caller.UserID,
			AdjustmentAmount: delta,
			PreviousBudget:   project.HoursBudget,
			NewBudget:        project.HoursBudget.Add(delta),
			Reason:           reason,
			CreatedAt:        s.opts.now(),
		}
		// The ledger row goes in first and is withdrawn if the version check fails.
		err = s.tx.Atomic(ctx, func(ctx context.Context) error {
			if err := s.projects.CreateAdjustment(ctx, adj); err != nil {
				return errors.Wrap(err, "create adjustment")
			}
			ok, err := s.projects.SetBudget(ctx, id, project.BudgetVersion, adj.NewBudget)
			if err == nil && !ok {
				err = errBudgetMoved
			}
			if err != nil {
				s.discardAdjustment(ctx, adj.ID)
				return errors.Wrap(err, "set budget")
			}
			return nil
		})
		if errors.Is(err, errBudgetMoved) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &AdjustmentResult{PreviousBudget: adj.PreviousBudget, NewBudget: adj.NewBudget, Adjustment: adj}, nil
	}
	return nil, apperr.Conflict("project.err.budget_contended")
}

func (s *ProjectService) discardAdjustment(ctx context.Context, id bson.ObjectID) {
	if err := s.projects.DeleteAdjustment(ctx, id); err != nil {
		log.WithError(err).WithField("adjustment_id", id.Hex()).Warn("discard unapplied budget adjustment")
	}
}

func (s *ProjectService) BudgetHistory(ctx context.Context, caller auth.Caller, id bson.ObjectID) ([]*model.BudgetAdjustment, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.projects.ListAdjustments(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "list adjustments")
	}
	return history, nil
}

// AddMembers assigns users to a project. Existing members are skipped.
func (s *ProjectService) AddMembers(ctx context.Context, caller auth.Caller, id bson.ObjectID, userIDs []string) (int, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, apperr.Validation("project.err.user_ids_required")
	}
	if _, err := s.get(ctx, id); err != nil {
		return 0, err
	}
	added := 0
	for _, userID := range userIDs {
		err := s.projects.AddMember(ctx, &model.ProjectMember{ProjectID: id, UserID: userID, AssignedAt: s.opts.now()})
		if errors.Is(err, model.ErrDuplicate) {
			continue
		}
		if err != nil {
			return added, errors.Wrap(err, "add member")
		}
		added++
	}
	return added, nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, caller auth.Caller, id bson.ObjectID, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return errors.Wrap(s.projects.RemoveMember(ctx, id, userID), "remove member")
}

func (s *ProjectService) Members(ctx context.Context, caller auth.Caller, id bson.ObjectID) ([]*model.ProjectMember, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	members, err := s.projects.ListMembers(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "list members")
	}
	return members, nil
}

func (s *ProjectService) get(ctx context.Context, id bson.ObjectID) (*model.Project, error) {
	project, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get project")
	}
	if project == nil {
		return nil, apperr.NotFound("project.err.not_found")
	}
	return project, nil
}
