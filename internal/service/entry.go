package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
	"timeledger/internal/editwindow"
	"timeledger/internal/model"
)

// EntryService owns direct time entry; members within the editable window, admins anywhere.
type EntryService struct {
	entries  EntryStore
	projects ProjectStore
	opts     options
}

func NewEntryService(entries EntryStore, projects ProjectStore, opts ...Option) *EntryService {
	return &EntryService{entries: entries, projects: projects, opts: newOptions(opts)}
}

type CreateEntryInput struct {
	UserID      string
	ProjectID   *bson.ObjectID
	EntryType   model.EntryType
	Date        string
	Hours       decimal.Decimal
	Description string
	Note        string
}

type UpdateEntryInput struct {
	ProjectID   *bson.ObjectID
	Hours       *decimal.Decimal
	Description *string
	Note        *string
}

// EntryView is an entry annotated with whether its owner may still edit it.
type EntryView struct {
	*model.TimeEntry
	Editable bool `json:"editable"`
}

type EntryList struct {
	Entries          []EntryView      `json:"entries"`
	AllowedDateRange editwindow.Range `json:"allowedDateRange"`
}

// List returns the caller's own entries.
func (s *EntryService) List(ctx context.Context, caller auth.Caller, f model.EntryFilter) (*EntryList, error) {
	f.UserID = caller.UserID
	entries, err := s.entries.ListEntries(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list entries")
	}
	window := editwindow.AllowedRange(s.opts.now())
	out := &EntryList{Entries: make([]EntryView, 0, len(entries)), AllowedDateRange: window}
	for _, e := range entries {
		out.Entries = append(out.Entries, EntryView{TimeEntry: e, Editable: window.Contains(e.Date)})
	}
	return out, nil
}

// Create records a member's own entry. Only REGULAR entries on assigned projects within
// the editable window are accepted.
func (s *EntryService) Create(ctx context.Context, caller auth.Caller, in CreateEntryInput) (*model.TimeEntry, error) {
	if in.EntryType == "" {
		in.EntryType = model.EntryTypeRegular
	}
	if in.EntryType.IsLeave() {
		return nil, apperr.Validation("entry.err.leave_requires_workflow")
	}
	if in.EntryType != model.EntryTypeRegular {
		return nil, apperr.Validation("entry.err.invalid_type")
	}
	entry, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	if !editwindow.IsEditable(s.opts.now(), entry.Date) {
		return nil, apperr.Validation("entry.err.outside_window")
	}

	member, err := s.projects.IsMember(ctx, *entry.ProjectID, caller.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "check project membership")
	}
	if !member {
		return nil, apperr.Forbidden("entry.err.not_project_member")
	}

	entry.UserID = caller.UserID
	entry.CreatedAt = s.opts.now()
	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		return nil, errors.Wrap(err, "create entry")
	}
	return entry, nil
}

// Update edits one of the caller's own entries dated inside the editable window.
func (s *EntryService) Update(ctx context.Context, caller auth.Caller, id bson.ObjectID, in UpdateEntryInput) (*model.TimeEntry, error) {
	entry, err := s.ownEditable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	in.Note = nil
	if in.ProjectID != nil && !in.ProjectID.IsZero() {
		member, err := s.projects.IsMember(ctx, *in.ProjectID, caller.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "check project membership")
		}
		if !member {
			return nil, apperr.Forbidden("entry.err.not_project_member")
		}
	}
	return s.apply(ctx, entry, in)
}

// Delete removes one of the caller's own entries dated inside the editable window.
func (s *EntryService) Delete(ctx context.Context, caller auth.Caller, id bson.ObjectID) error {
	if _, err := s.ownEditable(ctx, caller, id); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

// AdminList returns entries across all users.
func (s *EntryService) AdminList(ctx context.Context, caller auth.Caller, f model.EntryFilter) ([]*model.TimeEntry, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListEntries(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list entries")
	}
	return entries, nil
}

// AdminCreate records an entry on behalf of any user for any date.
func (s *EntryService) AdminCreate(ctx context.Context, caller auth.Caller, in CreateEntryInput) (*model.TimeEntry, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, apperr.Validation("entry.err.user_required")
	}
	if in.EntryType == "" {
		in.EntryType = model.EntryTypeRegular
	}
	if !in.EntryType.Valid() {
		return nil, apperr.Validation("entry.err.invalid_type")
	}
	entry, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	entry.UserID = in.UserID
	entry.AddedBy = caller.UserID
	entry.AddedByNote = in.Note
	entry.CreatedAt = s.opts.now()
	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		return nil, errors.Wrap(err, "create entry")
	}
	return entry, nil
}

func (s *EntryService) AdminUpdate(ctx context.Context, caller auth.Caller, id bson.ObjectID, in UpdateEntryInput) (*model.TimeEntry, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	entry, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, entry, in)
}

func (s *EntryService) AdminDelete(ctx context.Context, caller auth.Caller, id bson.ObjectID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.delete(ctx, id)
}

func (s *EntryService) validate(in CreateEntryInput) (*model.TimeEntry, error) {
	if in.Date == "" {
		return nil, apperr.Validation("entry.err.date_required")
	}
	if !validDate(in.Date) {
		return nil, apperr.Validation("entry.err.invalid_date", map[string]any{"Date": in.Date})
	}
	hours, err := normalizeHours(in.Hours)
	if err != nil {
		return nil, err
	}
	projectID := in.ProjectID
	if in.EntryType == model.EntryTypeRegular {
		if missingID(projectID) {
			return nil, apperr.Validation("entry.err.project_required")
		}
	} else {
		projectID = nil
	}
	return &model.TimeEntry{
		ID:          bson.NewObjectID(),
		ProjectID:   projectID,
		EntryType:   in.EntryType,
		Date:        in.Date,
		Hours:       hours,
		Description: in.Description,
	}, nil
}

func (s *EntryService) get(ctx context.Context, id bson.ObjectID) (*model.TimeEntry, error) {
	entry, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get entry")
	}
	if entry == nil {
		return nil, apperr.NotFound("entry.err.not_found")
	}
	return entry, nil
}

func (s *EntryService) ownEditable(ctx context.Context, caller auth.Caller, id bson.ObjectID) (*model.TimeEntry, error) {
	entry, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Other users' entries are indistinguishable from missing ones.
	if entry.UserID != caller.UserID {
		return nil, apperr.NotFound("entry.err.not_found")
	}
	if !editwindow.IsEditable(s.opts.now(), entry.Date) {
		return nil, apperr.Validation("entry.err.outside_window")
	}
	return entry, nil
}

func (s *EntryService) apply(ctx context.Context, entry *model.TimeEntry, in UpdateEntryInput) (*model.TimeEntry, error) {
	u := model.EntryUpdate{Description: in.Description, AddedByNote: in.Note}
	if in.ProjectID != nil {
		if in.ProjectID.IsZero() {
			return nil, apperr.Validation("entry.err.project_required")
		}
		u.ProjectID = in.ProjectID
		entry.ProjectID = in.ProjectID
	}
	if in.Hours != nil {
		hours, err := normalizeHours(*in.Hours)
		if err != nil {
			return nil, err
		}
		u.Hours = &hours
		entry.Hours = hours
	}
	if in.Description != nil {
		entry.Description = *in.Description
	}
	if in.Note != nil {
		entry.AddedByNote = *in.Note
	}
	if err := s.entries.UpdateEntry(ctx, entry.ID, u); err != nil {
		return nil, errors.Wrap(err, "update entry")
	}
	return entry, nil
}

func (s *EntryService) delete(ctx context.Context, id bson.ObjectID) error {
	deleted, err := s.entries.DeleteEntry(ctx, id)
	if err != nil {
		return errors.Wrap(err, "delete entry")
	}
	if !deleted {
		return apperr.NotFound("entry.err.not_found")
	}
	return nil
}
