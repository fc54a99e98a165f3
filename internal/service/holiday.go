package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
	"timeledger/internal/model"
)

var two = decimal.NewFromInt(2)

type HolidayService struct {
	tx       Tx
	holidays HolidayStore
	users    UserDirectory
	opts     options
}

func NewHolidayService(tx Tx, holidays HolidayStore, users UserDirectory, opts ...Option) *HolidayService {
	return &HolidayService{tx: tx, holidays: holidays, users: users, opts: newOptions(opts)}
}

type HolidayInput struct {
	Name        string
	Date        string
	Hours       *decimal.Decimal
	Description string
}

type HolidayUpdateInput struct {
	Name        *string
	Date        *string
	Hours       *decimal.Decimal
	Description *string
}

// AssignTarget selects who receives a holiday: every active user, or the listed ones.
type AssignTarget struct {
	UserIDs   []string
	AllActive bool
}

// EntitledHours scales a holiday's base hours by employment classification.
// CONTRACT users are not entitled.
func EntitledHours(base decimal.Decimal, employment model.EmploymentType) (decimal.Decimal, bool) {
	switch employment {
	case model.EmploymentContract:
		return decimal.Zero, false
	case model.EmploymentPartTime:
		return base.Div(two).Round(2), true
	default:
		return base, true
	}
}

// List returns all holidays for admins and only assigned ones for members.
func (s *HolidayService) List(ctx context.Context, caller auth.Caller) ([]*model.PaidHoliday, error) {
	var ids []bson.ObjectID
	if !caller.IsAdmin() {
		assignments, err := s.holidays.ListUserAssignments(ctx, caller.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "list user assignments")
		}
		if len(assignments) == 0 {
			return []*model.PaidHoliday{}, nil
		}
		for _, a := range assignments {
			ids = append(ids, a.PaidHolidayID)
		}
	}
	holidays, err := s.holidays.ListHolidays(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list holidays")
	}
	return holidays, nil
}

func (s *HolidayService) Create(ctx context.Context, caller auth.Caller, in HolidayInput) (*model.PaidHoliday, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Date == "" {
		return nil, apperr.Validation("holiday.err.name_date_required")
	}
	if !validDate(in.Date) {
		return nil, apperr.Validation("entry.err.invalid_date", map[string]any{"Date": in.Date})
	}
	hours := DefaultLeaveHours
	if in.Hours != nil {
		var err error
		if hours, err = normalizeHours(*in.Hours); err != nil {
			return nil, err
		}
	}

	h := &model.PaidHoliday{
		ID:          bson.NewObjectID(),
		Name:        in.Name,
		Date:        in.Date,
		Hours:       hours,
		Description: in.Description,
		CreatedBy:   caller.UserID,
		CreatedAt:   s.opts.now(),
	}
	if err := s.holidays.CreateHoliday(ctx, h); err != nil {
		return nil, errors.Wrap(err, "create holiday")
	}
	return h, nil
}

// Update edits a holiday. Existing assignments keep the hours they were granted with.
func (s *HolidayService) Update(ctx context.Context, caller auth.Caller, id bson.ObjectID, in HolidayUpdateInput) (*model.PaidHoliday, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	h, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var u model.HolidayUpdate
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		name := strings.TrimSpace(*in.Name)
		u.Name, h.Name = &name, name
	}
	if in.Date != nil && *in.Date != "" {
		if !validDate(*in.Date) {
			return nil, apperr.Validation("entry.err.invalid_date", map[string]any{"Date": *in.Date})
		}
		u.Date, h.Date = in.Date, *in.Date
	}
	if in.Hours != nil {
		hours, err := normalizeHours(*in.Hours)
		if err != nil {
			return nil, err
		}
		u.Hours, h.Hours = &hours, hours
	}
	if in.Description != nil {
		u.Description, h.Description = in.Description, *in.Description
	}
	if err := s.holidays.UpdateHoliday(ctx, id, u); err != nil {
		return nil, errors.Wrap(err, "update holiday")
	}
	return h, nil
}

// Delete removes a holiday and all of its assignments.
func (s *HolidayService) Delete(ctx context.Context, caller auth.Caller, id bson.ObjectID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.tx.Atomic(ctx, func(ctx context.Context) error {
		if err := s.holidays.DeleteAssignments(ctx, id); err != nil {
			return errors.Wrap(err, "delete assignments")
		}
		return errors.Wrap(s.holidays.DeleteHoliday(ctx, id), "delete holiday")
	})
}

// Assign grants the holiday to the target users and returns how many new assignments
// were created. Contract users and users already assigned are skipped.
func (s *HolidayService) Assign(ctx context.Context, caller auth.Caller, id bson.ObjectID, target AssignTarget) (int, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	h, err := s.get(ctx, id)
	if err != nil {
		return 0, err
	}

	var users []*model.User
	switch {
	case target.AllActive:
		users, err = s.users.ListActiveUsers(ctx)
	case len(target.UserIDs) > 0:
		users, err = s.users.GetUsers(ctx, target.UserIDs)
	}
	if err != nil {
		return 0, errors.Wrap(err, "load target users")
	}

	assigned := 0
	for _, u := range users {
		hours, entitled := EntitledHours(h.Hours, u.EmploymentType)
		if !entitled {
			continue
		}
		err := s.holidays.CreateAssignment(ctx, &model.PaidHolidayAssignment{
			ID:            bson.NewObjectID(),
			PaidHolidayID: h.ID,
			UserID:        u.ID,
			Hours:         hours,
			AssignedBy:    caller.UserID,
			AssignedAt:    s.opts.now(),
		})
		if errors.Is(err, model.ErrDuplicate) {
			continue
		}
		if err != nil {
			return assigned, errors.Wrapf(err, "assign user %s", u.ID)
		}
		assigned++
	}
	return assigned, nil
}

// Unassign removes one user's assignment. Removing a missing assignment is not an error.
func (s *HolidayService) Unassign(ctx context.Context, caller auth.Caller, id bson.ObjectID, userID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return errors.Wrap(s.holidays.DeleteAssignment(ctx, id, userID), "delete assignment")
}

func (s *HolidayService) Assignments(ctx context.Context, caller auth.Caller, id bson.ObjectID) ([]*model.PaidHolidayAssignment, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	assignments, err := s.holidays.ListAssignments(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "list assignments")
	}
	return assignments, nil
}

func (s *HolidayService) get(ctx context.Context, id bson.ObjectID) (*model.PaidHoliday, error) {
	h, err := s.holidays.GetHoliday(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get holiday")
	}
	if h == nil {
		return nil, apperr.NotFound("holiday.err.not_found")
	}
	return h, nil
}
