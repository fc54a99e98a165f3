package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"timeledger/internal/service"
)

type HolidayHandler struct {
	svc *service.HolidayService
}

func NewHolidayHandler(svc *service.HolidayService) *HolidayHandler {
	return &HolidayHandler{svc: svc}
}

type holidayRequest struct {
	Name        *string          `json:"name"`
	Date        *string          `json:"date"`
	Hours       *decimal.Decimal `json:"hours"`
	Description *string          `json:"description"`
}

type assignRequest struct {
	UserIDs   []string `json:"userIds"`
	AllActive bool     `json:"allActive"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *HolidayHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.svc.List(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (h *HolidayHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req holidayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	holiday, err := h.svc.Create(r.Context(), caller(r), service.HolidayInput{
		Name:        deref(req.Name),
		Date:        deref(req.Date),
		Hours:       req.Hours,
		Description: deref(req.Description),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, holiday)
}

func (h *HolidayHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "holiday.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req holidayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	holiday, err := h.svc.Update(r.Context(), caller(r), id, service.HolidayUpdateInput{
		Name:        req.Name,
		Date:        req.Date,
		Hours:       req.Hours,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holiday)
}

func (h *HolidayHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "holiday.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), caller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAssign fans the holiday out to the listed users, or to every active user.
func (h *HolidayHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "holiday.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	assigned, err := h.svc.Assign(r.Context(), caller(r), id, service.AssignTarget{
		UserIDs:   req.UserIDs,
		AllActive: req.AllActive,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"assigned": assigned})
}

func (h *HolidayHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "holiday.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Unassign(r.Context(), caller(r), id, r.PathValue("userId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HolidayHandler) HandleAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "holiday.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	assignments, err := h.svc.Assignments(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

// RegisterRoutes registers all paid holiday routes on the given mux.
func (h *HolidayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/holidays", h.HandleList)
	mux.HandleFunc("POST /api/holidays", h.HandleCreate)
	mux.HandleFunc("PUT /api/holidays/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /api/holidays/{id}", h.HandleDelete)

	// Assignment fan-out
	mux.HandleFunc("POST /api/holidays/{id}/assign", h.HandleAssign)
	mux.HandleFunc("DELETE /api/holidays/{id}/assign/{userId}", h.HandleUnassign)
	mux.HandleFunc("GET /api/holidays/{id}/assignments", h.HandleAssignments)
}
