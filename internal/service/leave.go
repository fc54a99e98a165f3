package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
	"timeledger/internal/model"
)

// LeaveLeadDays is how far ahead a member must request leave.
const LeaveLeadDays = 14

const (
	approvedLeaveDescription = "Approved leave"
	grantedLeaveDescription  = "Leave (added by admin)"
)

type LeaveService struct {
	tx       Tx
	leaves   LeaveStore
	entries  EntryStore
	notifier Notifier
	opts     options
}

func NewLeaveService(tx Tx, leaves LeaveStore, entries EntryStore, notifier Notifier, opts ...Option) *LeaveService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LeaveService{tx: tx, leaves: leaves, entries: entries, notifier: notifier, opts: newOptions(opts)}
}

type LeaveInput struct {
	UserID string
	Date   string
	Hours  *decimal.Decimal
	Reason string
}

type GrantResult struct {
	Request     *model.LeaveRequest `json:"request"`
	TimeEntryID bson.ObjectID       `json:"timeEntryId"`
}

// List returns the caller's own requests, or for admins every request matching f.
func (s *LeaveService) List(ctx context.Context, caller auth.Caller, f model.LeaveFilter) ([]*model.LeaveRequest, error) {
	if !caller.IsAdmin() {
		f.UserID = caller.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("leave.err.invalid_status")
	}
	reqs, err := s.leaves.ListLeaves(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list leave requests")
	}
	return reqs, nil
}

// MinSubmitDate is the earliest date a member may request leave for at now.
func MinSubmitDate(now time.Time) string {
	l := now.Local()
	day := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.Local)
	return day.AddDate(0, 0, LeaveLeadDays).Format(time.DateOnly)
}

// Submit creates a PENDING request for the caller at least LeaveLeadDays ahead.
func (s *LeaveService) Submit(ctx context.Context, caller auth.Caller, in LeaveInput) (*model.LeaveRequest, error) {
	hours, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	minDate := MinSubmitDate(s.opts.now())
	if in.Date < minDate {
		return nil, apperr.Validation("leave.err.too_soon", map[string]any{"Days": LeaveLeadDays, "MinDate": minDate})
	}

	req := &model.LeaveRequest{
		ID:        bson.NewObjectID(),
		UserID:    caller.UserID,
		Date:      in.Date,
		Hours:     hours,
		Reason:    in.Reason,
		Status:    model.LeaveStatusPending,
		CreatedAt: s.opts.now(),
	}
	if err := s.leaves.CreateLeave(ctx, req); err != nil {
		return nil, errors.Wrap(err, "create leave request")
	}
	return req, nil
}

// Grant records already-approved leave for any user and date, together with its entry.
func (s *LeaveService) Grant(ctx context.Context, caller auth.Caller, in LeaveInput) (*GrantResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, apperr.Validation("leave.err.user_required")
	}
	hours, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	entryID := bson.NewObjectID()
	req := &model.LeaveRequest{
		ID:          bson.NewObjectID(),
		UserID:      in.UserID,
		Date:        in.Date,
		Hours:       hours,
		Reason:      in.Reason,
		Status:      model.LeaveStatusApproved,
		ReviewedBy:  caller.UserID,
		ReviewedAt:  &now,
		AddedBy:     caller.UserID,
		TimeEntryID: &entryID,
		CreatedAt:   now,
	}
	entry := &model.TimeEntry{
		ID:          entryID,
		UserID:      in.UserID,
		EntryType:   model.EntryTypeApprovedLeave,
		Date:        in.Date,
		Hours:       hours,
		Description: descriptionOr(in.Reason, grantedLeaveDescription),
		AddedBy:     caller.UserID,
		CreatedAt:   now,
	}

	err = s.tx.Atomic(ctx, func(ctx context.Context) error {
		if err := s.entries.CreateEntry(ctx, entry); err != nil {
			return errors.Wrap(err, "create leave entry")
		}
		if err := s.leaves.CreateLeave(ctx, req); err != nil {
			discardEntry(ctx, s.entries, entryID)
			return errors.Wrap(err, "create leave request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.LeaveGranted(ctx, req)
	return &GrantResult{Request: req, TimeEntryID: entryID}, nil
}

// Approve moves a PENDING request to APPROVED and records its APPROVED_LEAVE entry.
func (s *LeaveService) Approve(ctx context.Context, caller auth.Caller, id bson.ObjectID) (*model.LeaveRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.LeaveStatusPending {
		return nil, apperr.Conflict("leave.err.approve_not_pending")
	}

	now := s.opts.now()
	entryID := bson.NewObjectID()
	entry := &model.TimeEntry{
		ID:          entryID,
		UserID:      req.UserID,
		EntryType:   model.EntryTypeApprovedLeave,
		Date:        req.Date,
		Hours:       req.Hours,
		Description: descriptionOr(req.Reason, approvedLeaveDescription),
		CreatedAt:   now,
	}
	review := model.LeaveReview{
		Status:      model.LeaveStatusApproved,
		ReviewedBy:  caller.UserID,
		ReviewedAt:  now,
		TimeEntryID: &entryID,
	}

	// The entry is written before the claim; a lost or failed claim withdraws it.
	err = s.tx.Atomic(ctx, func(ctx context.Context) error {
		if err := s.entries.CreateEntry(ctx, entry); err != nil {
			return errors.Wrap(err, "create leave entry")
		}
		ok, err := s.leaves.ReviewLeave(ctx, id, review)
		if err == nil && !ok {
			err = apperr.Conflict("leave.err.approve_not_pending")
		}
		if err != nil {
			discardEntry(ctx, s.entries, entryID)
			return errors.Wrap(err, "approve leave request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	req.Status = review.Status
	req.ReviewedBy = review.ReviewedBy
	req.ReviewedAt = &now
	req.TimeEntryID = &entryID
	s.notifier.LeaveReviewed(ctx, req)
	return req, nil
}

// Reject moves a PENDING request to REJECTED. A note is mandatory.
func (s *LeaveService) Reject(ctx context.Context, caller auth.Caller, id bson.ObjectID, note string) (*model.LeaveRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if note == "" {
		return nil, apperr.Validation("leave.err.note_required")
	}
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != model.LeaveStatusPending {
		return nil, apperr.Conflict("leave.err.reject_not_pending")
	}

	now := s.opts.now()
	ok, err := s.leaves.ReviewLeave(ctx, id, model.LeaveReview{
		Status:     model.LeaveStatusRejected,
		ReviewedBy: caller.UserID,
		ReviewedAt: now,
		ReviewNote: note,
	})
	if err != nil {
		return nil, errors.Wrap(err, "reject leave request")
	}
	if !ok {
		return nil, apperr.Conflict("leave.err.reject_not_pending")
	}

	req.Status = model.LeaveStatusRejected
	req.ReviewedBy = caller.UserID
	req.ReviewedAt = &now
	req.ReviewNote = note
	s.notifier.LeaveReviewed(ctx, req)
	return req, nil
}

// Cancel deletes a PENDING request. Only its owner or an admin may cancel it.
func (s *LeaveService) Cancel(ctx context.Context, caller auth.Caller, id bson.ObjectID) error {
	req, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if req.UserID != caller.UserID && !caller.IsAdmin() {
		return apperr.Forbidden("leave.err.cancel_forbidden")
	}
	if req.Status != model.LeaveStatusPending {
		return apperr.Conflict("leave.err.cancel_not_pending")
	}
	deleted, err := s.leaves.DeletePendingLeave(ctx, id)
	if err != nil {
		return errors.Wrap(err, "cancel leave request")
	}
	if !deleted {
		return apperr.Conflict("leave.err.cancel_not_pending")
	}
	return nil
}

func (s *LeaveService) validate(in LeaveInput) (decimal.Decimal, error) {
	if in.Date == "" {
		return decimal.Zero, apperr.Validation("leave.err.date_required")
	}
	if !validDate(in.Date) {
		return decimal.Zero, apperr.Validation("entry.err.invalid_date", map[string]any{"Date": in.Date})
	}
	if in.Hours == nil {
		return DefaultLeaveHours, nil
	}
	return normalizeHours(*in.Hours)
}

func (s *LeaveService) get(ctx context.Context, id bson.ObjectID) (*model.LeaveRequest, error) {
	req, err := s.leaves.GetLeave(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get leave request")
	}
	if req == nil {
		return nil, apperr.NotFound("leave.err.not_found")
	}
	return req, nil
}

func descriptionOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
