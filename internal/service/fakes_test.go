package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/auth"
	"timeledger/internal/model"
)

// memStore is an in-memory implementation of every store interface. It enforces the
// same uniqueness and conditional-update rules as the Mongo store.
type memStore struct {
	mu          sync.Mutex
	entries     map[bson.ObjectID]model.TimeEntry
	sessions    map[bson.ObjectID]model.ClockSession
	leaves      map[bson.ObjectID]model.LeaveRequest
	projects    map[bson.ObjectID]model.Project
	adjustments []model.BudgetAdjustment
	members     map[bson.ObjectID]map[string]model.ProjectMember
	holidays    map[bson.ObjectID]model.PaidHoliday
	assignments []model.PaidHolidayAssignment
	users       map[string]model.User

	// beforeSetBudget runs inside SetBudget before the version check.
	beforeSetBudget func()

	// Failure injection: a hook returning an error fails the call before it writes.
	failCreateEntry      func(e *model.TimeEntry) error
	failCloseSession     func(id bson.ObjectID) error
	failCreateAdjustment func(a *model.BudgetAdjustment) error
	failSetBudget        error
	failCreateLeave      error
	failReviewLeave      error
}

func newMemStore() *memStore {
	return &memStore{
		entries:  map[bson.ObjectID]model.TimeEntry{},
		sessions: map[bson.ObjectID]model.ClockSession{},
		leaves:   map[bson.ObjectID]model.LeaveRequest{},
		projects: map[bson.ObjectID]model.Project{},
		members:  map[bson.ObjectID]map[string]model.ProjectMember{},
		holidays: map[bson.ObjectID]model.PaidHoliday{},
		users:    map[string]model.User{},
	}
}

func (m *memStore) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) addUser(id string, employment model.EmploymentType, status model.UserStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = model.User{ID: id, Role: model.RoleMember, EmploymentType: employment, Status: status}
}

// Entries

func (m *memStore) CreateEntry(_ context.Context, e *model.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateEntry != nil {
		if err := m.failCreateEntry(e); err != nil {
			return err
		}
	}
	if _, ok := m.entries[e.ID]; ok {
		return model.ErrDuplicate
	}
	m.entries[e.ID] = *e
	return nil
}

func (m *memStore) GetEntry(_ context.Context, id bson.ObjectID) (*model.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func matchEntry(e model.TimeEntry, f model.EntryFilter) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.ProjectID != nil && (e.ProjectID == nil || *e.ProjectID != *f.ProjectID) {
		return false
	}
	if f.StartDate != "" && e.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && e.Date > f.EndDate {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			found = found || t == e.EntryType
		}
		return found
	}
	return true
}

func (m *memStore) ListEntries(_ context.Context, f model.EntryFilter) ([]*model.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.TimeEntry
	for _, e := range m.entries {
		if matchEntry(e, f) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (m *memStore) UpdateEntry(_ context.Context, id bson.ObjectID, u model.EntryUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	if u.ProjectID != nil {
		e.ProjectID = u.ProjectID
	}
	if u.Hours != nil {
		e.Hours = *u.Hours
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.AddedByNote != nil {
		e.AddedByNote = *u.AddedByNote
	}
	m.entries[id] = e
	return nil
}

func (m *memStore) DeleteEntry(_ context.Context, id bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	return ok, nil
}

func (m *memStore) SumHours(_ context.Context, f model.EntryFilter) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, e := range m.entries {
		if matchEntry(e, f) {
			sum = sum.Add(e.Hours)
		}
	}
	return sum, nil
}

// Clock sessions

func (m *memStore) CreateSession(_ context.Context, s *model.ClockSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.Open && existing.UserID == s.UserID {
			return model.ErrDuplicate
		}
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memStore) GetOpenSession(_ context.Context, userID string) (*model.ClockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Open && s.UserID == userID {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListOpenSessionsBefore(_ context.Context, before time.Time) ([]*model.ClockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ClockSession
	for _, s := range m.sessions {
		if s.Open && !s.ClockInAt.After(before) {
			s := s
			out = append(out, &s)
		}
	}
	return out, nil
}

func (m *memStore) CloseSession(_ context.Context, id bson.ObjectID, c model.SessionClose) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCloseSession != nil {
		if err := m.failCloseSession(id); err != nil {
			return false, err
		}
	}
	s, ok := m.sessions[id]
	if !ok || !s.Open {
		return false, nil
	}
	entryID := c.TimeEntryID
	clockOut := c.ClockOutAt
	s.Open = false
	s.ClockOutAt = &clockOut
	s.ProjectID = c.ProjectID
	s.Description = c.Description
	s.AutoClockOut = c.AutoClockOut
	s.Acknowledged = c.Acknowledged
	s.TimeEntryID = &entryID
	m.sessions[id] = s
	return true, nil
}

func (m *memStore) AcknowledgeAutoClose(_ context.Context, userID string) (*model.ClockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.ClockSession
	for _, s := range m.sessions {
		if s.UserID != userID || s.Open || !s.AutoClockOut || s.Acknowledged {
			continue
		}
		if latest == nil || s.ClockOutAt.After(*latest.ClockOutAt) {
			s := s
			latest = &s
		}
	}
	if latest == nil {
		return nil, nil
	}
	// Older closures are superseded by the one being reported.
	for id, s := range m.sessions {
		if s.UserID == userID && !s.Open && s.AutoClockOut {
			s.Acknowledged = true
			m.sessions[id] = s
		}
	}
	latest.Acknowledged = true
	return latest, nil
}

func (m *memStore) ListSessions(_ context.Context, userID string, limit int) ([]*model.ClockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ClockSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockInAt.After(out[j].ClockInAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) openSessions(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.Open && s.UserID == userID {
			n++
		}
	}
	return n
}

// Leave requests

func (m *memStore) CreateLeave(_ context.Context, req *model.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateLeave != nil {
		return m.failCreateLeave
	}
	m.leaves[req.ID] = *req
	return nil
}

func (m *memStore) GetLeave(_ context.Context, id bson.ObjectID) (*model.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.leaves[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (m *memStore) ListLeaves(_ context.Context, f model.LeaveFilter) ([]*model.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.LeaveRequest
	for _, req := range m.leaves {
		if (f.UserID == "" || req.UserID == f.UserID) && (f.Status == "" || req.Status == f.Status) {
			req := req
			out = append(out, &req)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ReviewLeave(_ context.Context, id bson.ObjectID, r model.LeaveReview) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReviewLeave != nil {
		return false, m.failReviewLeave
	}
	req, ok := m.leaves[id]
	if !ok || req.Status != model.LeaveStatusPending {
		return false, nil
	}
	reviewedAt := r.ReviewedAt
	req.Status = r.Status
	req.ReviewedBy = r.ReviewedBy
	req.ReviewedAt = &reviewedAt
	req.ReviewNote = r.ReviewNote
	req.TimeEntryID = r.TimeEntryID
	m.leaves[id] = req
	return true, nil
}

func (m *memStore) DeletePendingLeave(_ context.Context, id bson.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.leaves[id]
	if !ok || req.Status != model.LeaveStatusPending {
		return false, nil
	}
	delete(m.leaves, id)
	return true, nil
}

// Projects

func (m *memStore) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.projects {
		if existing.Code == p.Code {
			return model.ErrDuplicate
		}
	}
	m.projects[p.ID] = *p
	return nil
}

func (m *memStore) GetProject(_ context.Context, id bson.ObjectID) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) ListProjects(_ context.Context, ids []bson.ObjectID) ([]*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Project
	for _, p := range m.projects {
		if ids != nil && !containsID(ids, p.ID) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (m *memStore) UpdateProject(_ context.Context, id bson.ObjectID, u model.ProjectUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.projects[id]
	if u.Code != nil {
		for otherID, other := range m.projects {
			if otherID != id && other.Code == *u.Code {
				return model.ErrDuplicate
			}
		}
		p.Code = *u.Code
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	m.projects[id] = p
	return nil
}

func (m *memStore) SetBudget(_ context.Context, id bson.ObjectID, expectedVersion int64, newBudget decimal.Decimal) (bool, error) {
	if m.beforeSetBudget != nil {
		m.beforeSetBudget()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSetBudget != nil {
		return false, m.failSetBudget
	}
	p, ok := m.projects[id]
	if !ok || p.BudgetVersion != expectedVersion {
		return false, nil
	}
	p.HoursBudget = newBudget
	p.BudgetVersion++
	m.projects[id] = p
	return true, nil
}

func (m *memStore) CreateAdjustment(_ context.Context, a *model.BudgetAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateAdjustment != nil {
		if err := m.failCreateAdjustment(a); err != nil {
			return err
		}
	}
	m.adjustments = append(m.adjustments, *a)
	return nil
}

func (m *memStore) DeleteAdjustment(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.adjustments {
		if a.ID == id {
			m.adjustments = append(m.adjustments[:i], m.adjustments[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memStore) ListAdjustments(_ context.Context, projectID bson.ObjectID) ([]*model.BudgetAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BudgetAdjustment
	for _, a := range m.adjustments {
		if a.ProjectID == projectID {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *memStore) AddMember(_ context.Context, pm *model.ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.members[pm.ProjectID]
	if members == nil {
		members = map[string]model.ProjectMember{}
		m.members[pm.ProjectID] = members
	}
	if _, ok := members[pm.UserID]; ok {
		return model.ErrDuplicate
	}
	members[pm.UserID] = *pm
	return nil
}

func (m *memStore) RemoveMember(_ context.Context, projectID bson.ObjectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[projectID], userID)
	return nil
}

func (m *memStore) ListMembers(_ context.Context, projectID bson.ObjectID) ([]*model.ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ProjectMember
	for _, pm := range m.members[projectID] {
		pm := pm
		out = append(out, &pm)
	}
	return out, nil
}

func (m *memStore) ListMemberProjectIDs(_ context.Context, userID string) ([]bson.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []bson.ObjectID
	for projectID, members := range m.members {
		if _, ok := members[userID]; ok {
			out = append(out, projectID)
		}
	}
	return out, nil
}

func (m *memStore) IsMember(_ context.Context, projectID bson.ObjectID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[projectID][userID]
	return ok, nil
}

// Holidays

func (m *memStore) CreateHoliday(_ context.Context, h *model.PaidHoliday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = *h
	return nil
}

func (m *memStore) GetHoliday(_ context.Context, id bson.ObjectID) (*model.PaidHoliday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holidays[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *memStore) ListHolidays(_ context.Context, ids []bson.ObjectID) ([]*model.PaidHoliday, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaidHoliday
	for _, h := range m.holidays {
		if ids != nil && !containsID(ids, h.ID) {
			continue
		}
		h := h
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memStore) UpdateHoliday(_ context.Context, id bson.ObjectID, u model.HolidayUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.holidays[id]
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.Date != nil {
		h.Date = *u.Date
	}
	if u.Hours != nil {
		h.Hours = *u.Hours
	}
	if u.Description != nil {
		h.Description = *u.Description
	}
	m.holidays[id] = h
	return nil
}

func (m *memStore) DeleteHoliday(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}

func (m *memStore) CreateAssignment(_ context.Context, a *model.PaidHolidayAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assignments {
		if existing.PaidHolidayID == a.PaidHolidayID && existing.UserID == a.UserID {
			return model.ErrDuplicate
		}
	}
	m.assignments = append(m.assignments, *a)
	return nil
}

func (m *memStore) DeleteAssignment(_ context.Context, holidayID bson.ObjectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = filterAssignments(m.assignments, func(a model.PaidHolidayAssignment) bool {
		return a.PaidHolidayID != holidayID || a.UserID != userID
	})
	return nil
}

func (m *memStore) DeleteAssignments(_ context.Context, holidayID bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = filterAssignments(m.assignments, func(a model.PaidHolidayAssignment) bool {
		return a.PaidHolidayID != holidayID
	})
	return nil
}

func (m *memStore) ListAssignments(_ context.Context, holidayID bson.ObjectID) ([]*model.PaidHolidayAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaidHolidayAssignment
	for _, a := range m.assignments {
		if a.PaidHolidayID == holidayID {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *memStore) ListUserAssignments(_ context.Context, userID string) ([]*model.PaidHolidayAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaidHolidayAssignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

// Users

func (m *memStore) GetUsers(_ context.Context, ids []string) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveUsers(_ context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		if u.Status == model.UserStatusActive {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsID(ids []bson.ObjectID, id bson.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func filterAssignments(in []model.PaidHolidayAssignment, keep func(model.PaidHolidayAssignment) bool) []model.PaidHolidayAssignment {
	out := in[:0]
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier counts notifications.
type recordingNotifier struct {
	mu         sync.Mutex
	reviewed   []*model.LeaveRequest
	granted    []*model.LeaveRequest
	autoClosed []*model.ClockSession
}

func (n *recordingNotifier) LeaveReviewed(_ context.Context, req *model.LeaveRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviewed = append(n.reviewed, req)
}

func (n *recordingNotifier) LeaveGranted(_ context.Context, req *model.LeaveRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.granted = append(n.granted, req)
}

func (n *recordingNotifier) SessionAutoClosed(_ context.Context, s *model.ClockSession, _ decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.autoClosed = append(n.autoClosed, s)
}

var (
	admin  = auth.Caller{UserID: "admin-1", Role: model.RoleAdmin}
	member = auth.Caller{UserID: "user-1", Role: model.RoleMember}
	other  = auth.Caller{UserID: "user-2", Role: model.RoleMember}
)

func hours(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func localTime(date string, hour, minute int) time.Time {
	d, err := time.ParseInLocation(time.DateOnly, date, time.Local)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}
