package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/model"
)

// Lookups return (nil, nil) when the document does not exist.

// Tx runs fn as one atomic unit of work against the store.
type Tx interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type EntryStore interface {
	CreateEntry(ctx context.Context, e *model.TimeEntry) error
	GetEntry(ctx context.Context, id bson.ObjectID) (*model.TimeEntry, error)
	ListEntries(ctx context.Context, f model.EntryFilter) ([]*model.TimeEntry, error)
	UpdateEntry(ctx context.Context, id bson.ObjectID, u model.EntryUpdate) error
	DeleteEntry(ctx context.Context, id bson.ObjectID) (bool, error)
	SumHours(ctx context.Context, f model.EntryFilter) (decimal.Decimal, error)
}

type ClockStore interface {
	// CreateSession returns model.ErrDuplicate if the user already has an open session.
	CreateSession(ctx context.Context, s *model.ClockSession) error
	GetOpenSession(ctx context.Context, userID string) (*model.ClockSession, error)
	ListOpenSessionsBefore(ctx context.Context, before time.Time) ([]*model.ClockSession, error)
	// CloseSession closes the session only if it is still open and reports whether it did.
	CloseSession(ctx context.Context, id bson.ObjectID, c model.SessionClose) (bool, error)
	// AcknowledgeAutoClose returns the latest unacknowledged auto-closed session of the
	// user and marks it acknowledged.
	AcknowledgeAutoClose(ctx context.Context, userID string) (*model.ClockSession, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]*model.ClockSession, error)
}

type LeaveStore interface {
	CreateLeave(ctx context.Context, req *model.LeaveRequest) error
	GetLeave(ctx context.Context, id bson.ObjectID) (*model.LeaveRequest, error)
	ListLeaves(ctx context.Context, f model.LeaveFilter) ([]*model.LeaveRequest, error)
	// ReviewLeave applies the review only if the request is still PENDING.
	ReviewLeave(ctx context.Context, id bson.ObjectID, r model.LeaveReview) (bool, error)
	// DeletePendingLeave deletes the request only if it is still PENDING.
	DeletePendingLeave(ctx context.Context, id bson.ObjectID) (bool, error)
}

type ProjectStore interface {
	// CreateProject and UpdateProject return model.ErrDuplicate on a code collision.
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id bson.ObjectID) (*model.Project, error)
	ListProjects(ctx context.Context, ids []bson.ObjectID) ([]*model.Project, error)
	UpdateProject(ctx context.Context, id bson.ObjectID, u model.ProjectUpdate) error
	// SetBudget writes newBudget only if the project is still at expectedVersion.
	SetBudget(ctx context.Context, id bson.ObjectID, expectedVersion int64, newBudget decimal.Decimal) (bool, error)
	CreateAdjustment(ctx context.Context, a *model.BudgetAdjustment) error
	// DeleteAdjustment withdraws an adjustment whose budget write did not go through.
	DeleteAdjustment(ctx context.Context, id bson.ObjectID) error
	ListAdjustments(ctx context.Context, projectID bson.ObjectID) ([]*model.BudgetAdjustment, error)

	// AddMember returns model.ErrDuplicate if the user is already a member.
	AddMember(ctx context.Context, m *model.ProjectMember) error
	RemoveMember(ctx context.Context, projectID bson.ObjectID, userID string) error
	ListMembers(ctx context.Context, projectID bson.ObjectID) ([]*model.ProjectMember, error)
	ListMemberProjectIDs(ctx context.Context, userID string) ([]bson.ObjectID, error)
	IsMember(ctx context.Context, projectID bson.ObjectID, userID string) (bool, error)
}

type HolidayStore interface {
	CreateHoliday(ctx context.Context, h *model.PaidHoliday) error
	GetHoliday(ctx context.Context, id bson.ObjectID) (*model.PaidHoliday, error)
	// ListHolidays returns all holidays ordered by date, or only those in ids when ids is non-nil.
	ListHolidays(ctx context.Context, ids []bson.ObjectID) ([]*model.PaidHoliday, error)
	UpdateHoliday(ctx context.Context, id bson.ObjectID, u model.HolidayUpdate) error
	DeleteHoliday(ctx context.Context, id bson.ObjectID) error

	// CreateAssignment returns model.ErrDuplicate if the user is already assigned.
	CreateAssignment(ctx context.Context, a *model.PaidHolidayAssignment) error
	DeleteAssignment(ctx context.Context, holidayID bson.ObjectID, userID string) error
	DeleteAssignments(ctx context.Context, holidayID bson.ObjectID) error
	ListAssignments(ctx context.Context, holidayID bson.ObjectID) ([]*model.PaidHolidayAssignment, error)
	ListUserAssignments(ctx context.Context, userID string) ([]*model.PaidHolidayAssignment, error)
}

// UserDirectory reads accounts owned by the identity service.
type UserDirectory interface {
	GetUsers(ctx context.Context, ids []string) ([]*model.User, error)
	ListActiveUsers(ctx context.Context) ([]*model.User, error)
}
