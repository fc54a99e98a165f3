package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
	"timeledger/internal/i18n"
	"timeledger/internal/model"
	"timeledger/internal/service"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// leaveFake backs LeaveService with maps. Only the methods the leave workflow calls do
// real work.
type leaveFake struct {
	mu      sync.Mutex
	leaves  map[bson.ObjectID]model.LeaveRequest
	entries map[bson.ObjectID]model.TimeEntry
}

func newLeaveFake() *leaveFake {
	return &leaveFake{
		leaves:  map[bson.ObjectID]model.LeaveRequest{},
		entries: map[bson.ObjectID]model.TimeEntry{},
	}
}

func (f *leaveFake) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *leaveFake) CreateLeave(_ context.Context, req *model.LeaveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves[req.ID] = *req
	return nil
}

func (f *leaveFake) GetLeave(_ context.Context, id bson.ObjectID) (*model.LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.leaves[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (f *leaveFake) ListLeaves(_ context.Context, filter model.LeaveFilter) ([]*model.LeaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.LeaveRequest
	for _, req := range f.leaves {
		if filter.UserID != "" && req.UserID != filter.UserID {
			continue
		}
		req := req
		out = append(out, &req)
	}
	return out, nil
}

func (f *leaveFake) ReviewLeave(_ context.Context, id bson.ObjectID, r model.LeaveReview) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.leaves[id]
	if !ok || req.Status != model.LeaveStatusPending {
		return false, nil
	}
	req.Status = r.Status
	req.ReviewedBy = r.ReviewedBy
	req.ReviewNote = r.ReviewNote
	req.TimeEntryID = r.TimeEntryID
	f.leaves[id] = req
	return true, nil
}

func (f *leaveFake) DeletePendingLeave(_ context.Context, id bson.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.leaves[id]
	if !ok || req.Status != model.LeaveStatusPending {
		return false, nil
	}
	delete(f.leaves, id)
	return true, nil
}

func (f *leaveFake) CreateEntry(_ context.Context, e *model.TimeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[e.ID] = *e
	return nil
}

func (f *leaveFake) GetEntry(context.Context, bson.ObjectID) (*model.TimeEntry, error) {
	return nil, nil
}

func (f *leaveFake) ListEntries(context.Context, model.EntryFilter) ([]*model.TimeEntry, error) {
	return nil, nil
}

func (f *leaveFake) UpdateEntry(context.Context, bson.ObjectID, model.EntryUpdate) error {
	return nil
}

func (f *leaveFake) DeleteEntry(context.Context, bson.ObjectID) (bool, error) {
	return false, nil
}

func (f *leaveFake) SumHours(context.Context, model.EntryFilter) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

const testSecret = "handler-test-secret"

var (
	adminCaller  = auth.Caller{UserID: "admin-1", Role: model.RoleAdmin}
	memberCaller = auth.Caller{UserID: "user-1", Role: model.RoleMember}
)

type testServer struct {
	t        *testing.T
	handler  http.Handler
	verifier *auth.Verifier
	store    *leaveFake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := newLeaveFake()
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	svc := service.NewLeaveService(store, store, store, nil, service.WithClock(func() time.Time { return now }))

	mux := http.NewServeMux()
	NewLeaveHandler(svc).RegisterRoutes(mux)
	v := auth.NewVerifier(testSecret)
	return &testServer{
		t:        t,
		handler:  LocaleMiddleware(v.Middleware(mux)),
		verifier: v,
		store:    store,
	}
}

func (s *testServer) do(c auth.Caller, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	token, err := s.verifier.Sign(c, time.Minute)
	require.NoError(s.t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestLeaveWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(memberCaller, http.MethodPost, "/api/leave-requests", map[string]any{
		"date": "2024-06-24", "hours": 8, "reason": "family",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[model.LeaveRequest](t, rec)
	assert.Equal(t, model.LeaveStatusPending, created.Status)
	assert.Equal(t, "user-1", created.UserID)

	path := "/api/leave-requests/" + created.ID.Hex()

	rec = s.do(memberCaller, http.MethodPut, path+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(adminCaller, http.MethodPut, path+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decodeBody[model.LeaveRequest](t, rec)
	assert.Equal(t, model.LeaveStatusApproved, approved.Status)
	require.NotNil(t, approved.TimeEntryID)
	assert.Contains(t, s.store.entries, *approved.TimeEntryID)

	rec = s.do(adminCaller, http.MethodPut, path+"/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Only pending requests can be approved.", resp.Error)

	rec = s.do(memberCaller, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLeaveTooSoonIsLocalized(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"date": "2024-06-11", "hours": 8}

	rec := s.do(memberCaller, http.MethodPost, "/api/leave-requests", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Leave must be requested at least 14 days ahead. The earliest date is 2024-06-24.", resp.Error)

	rec = s.do(memberCaller, http.MethodPost, "/api/leave-requests", body, "Accept-Language", "vi-VN,vi;q=0.9")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp = decodeBody[ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "2024-06-24")
	assert.Contains(t, resp.Error, "Phải xin nghỉ")
}

func TestRejectRequiresNote(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(memberCaller, http.MethodPost, "/api/leave-requests", map[string]any{"date": "2024-07-01", "hours": 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[model.LeaveRequest](t, rec)
	path := "/api/leave-requests/" + created.ID.Hex() + "/reject"

	rec = s.do(adminCaller, http.MethodPut, path, map[string]any{"note": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(adminCaller, http.MethodPut, path, map[string]any{"note": "short staffed"})
	require.Equal(t, http.StatusOK, rec.Code)
	rejected := decodeBody[model.LeaveRequest](t, rec)
	assert.Equal(t, model.LeaveStatusRejected, rejected.Status)
	assert.Equal(t, "short staffed", rejected.ReviewNote)
}

func TestRejectAcceptsReviewNote(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(memberCaller, http.MethodPost, "/api/leave-requests", map[string]any{"date": "2024-07-01", "hours": 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[model.LeaveRequest](t, rec)

	rec = s.do(adminCaller, http.MethodPut, "/api/leave-requests/"+created.ID.Hex()+"/reject", map[string]any{"reviewNote": "full week"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "full week", decodeBody[model.LeaveRequest](t, rec).ReviewNote)
}

func TestGrantAndCancel(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(memberCaller, http.MethodPost, "/api/leave-requests/admin", map[string]any{"userId": "user-2", "date": "2024-06-11", "hours": 8})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(adminCaller, http.MethodPost, "/api/leave-requests/admin", map[string]any{"userId": "user-2", "date": "2024-06-11", "hours": 8})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	granted := decodeBody[service.GrantResult](t, rec)
	assert.Equal(t, model.LeaveStatusApproved, granted.Request.Status)
	assert.Contains(t, s.store.entries, granted.TimeEntryID)

	rec = s.do(memberCaller, http.MethodPost, "/api/leave-requests", map[string]any{"date": "2024-08-01", "hours": 8})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[model.LeaveRequest](t, rec).ID.Hex()

	rec = s.do(auth.Caller{UserID: "user-2", Role: model.RoleMember}, http.MethodDelete, "/api/leave-requests/"+id, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(memberCaller, http.MethodDelete, "/api/leave-requests/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(memberCaller, http.MethodDelete, "/api/leave-requests/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListIsScopedToCaller(t *testing.T) {
	s := newTestServer(t)
	for _, c := range []auth.Caller{memberCaller, {UserID: "user-2", Role: model.RoleMember}} {
		rec := s.do(c, http.MethodPost, "/api/leave-requests", map[string]any{"date": "2024-07-01", "hours": 8})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(memberCaller, http.MethodGet, "/api/leave-requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]model.LeaveRequest](t, rec), 1)

	rec = s.do(adminCaller, http.MethodGet, "/api/leave-requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]model.LeaveRequest](t, rec), 2)

	rec = s.do(adminCaller, http.MethodGet, "/api/leave-requests?status=LOST", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBadInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(adminCaller, http.MethodPut, "/api/leave-requests/not-an-id/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(adminCaller, http.MethodPut, "/api/leave-requests/"+bson.NewObjectID().Hex()+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/leave-requests", bytes.NewBufferString("{"))
	token, err := s.verifier.Sign(memberCaller, time.Minute)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "Invalid request body")
}

func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leave-requests", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, apperr.KindUnauthenticated, resp.Kind)
	assert.Equal(t, "Sign in to continue.", resp.Error)

	req := httptest.NewRequest(http.MethodGet, "/api/leave-requests", nil)
	req.Header.Set("Authorization", "Bearer expired")
	req.Header.Set("Accept-Language", "vi")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp = decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Phiên đăng nhập không hợp lệ hoặc đã hết hạn. Vui lòng đăng nhập lại.", resp.Error)
}
