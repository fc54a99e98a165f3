package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"timeledger/internal/model"
	"timeledger/internal/service"
)

type LeaveHandler struct {
	svc *service.LeaveService
}

func NewLeaveHandler(svc *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{svc: svc}
}

type leaveRequest struct {
	UserID string           `json:"userId"`
	Date   string           `json:"date"`
	Hours  *decimal.Decimal `json:"hours"`
	Reason string           `json:"reason"`
}

func (req leaveRequest) input() service.LeaveInput {
	return service.LeaveInput{UserID: req.UserID, Date: req.Date, Hours: req.Hours, Reason: req.Reason}
}

// reviewRequest accepts the reject note as "note"; "reviewNote" is read when note is absent.
type reviewRequest struct {
	Note       string `json:"note"`
	ReviewNote string `json:"reviewNote"`
}

func (r reviewRequest) note() string {
	if r.Note != "" {
		return r.Note
	}
	return r.ReviewNote
}

func (h *LeaveHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.LeaveFilter{UserID: q.Get("userId"), Status: model.LeaveStatus(q.Get("status"))}
	reqs, err := h.svc.List(r.Context(), caller(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *LeaveHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.Submit(r.Context(), caller(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleGrant records leave on behalf of a user, already approved.
func (h *LeaveHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Grant(r.Context(), caller(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *LeaveHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "leave.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	approved, err := h.svc.Approve(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, approved)
}

func (h *LeaveHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "leave.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rejected, err := h.svc.Reject(r.Context(), caller(r), id, req.note())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rejected)
}

func (h *LeaveHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "leave.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Cancel(r.Context(), caller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers all leave request routes on the given mux.
func (h *LeaveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/leave-requests", h.HandleList)
	mux.HandleFunc("POST /api/leave-requests", h.HandleSubmit)
	mux.HandleFunc("POST /api/leave-requests/admin", h.HandleGrant)
	mux.HandleFunc("PUT /api/leave-requests/{id}/approve", h.HandleApprove)
	mux.HandleFunc("PUT /api/leave-requests/{id}/reject", h.HandleReject)
	mux.HandleFunc("DELETE /api/leave-requests/{id}", h.HandleCancel)
}
