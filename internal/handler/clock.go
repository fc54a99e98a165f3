package handler

import (
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/service"
)

type ClockHandler struct {
	svc *service.ClockService
}

func NewClockHandler(svc *service.ClockService) *ClockHandler {
	return &ClockHandler{svc: svc}
}

type clockOutRequest struct {
	ProjectID   *bson.ObjectID `json:"projectId"`
	Description string         `json:"description"`
}

// HandleStatus reports the open session, or an auto clock-out the caller has not seen yet.
func (h *ClockHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *ClockHandler) HandleClockIn(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.ClockIn(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *ClockHandler) HandleClockOut(w http.ResponseWriter, r *http.Request) {
	var req clockOutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.ClockOut(r.Context(), caller(r), req.ProjectID, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ClockHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.History(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// RegisterRoutes registers all clock routes on the given mux.
func (h *ClockHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/clock/status", h.HandleStatus)
	mux.HandleFunc("POST /api/clock/in", h.HandleClockIn)
	mux.HandleFunc("POST /api/clock/out", h.HandleClockOut)
	mux.HandleFunc("GET /api/clock/history", h.HandleHistory)
}
