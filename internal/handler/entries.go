package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"timeledger/internal/model"
	"timeledger/internal/service"
)

type EntryHandler struct {
	svc *service.EntryService
}

func NewEntryHandler(svc *service.EntryService) *EntryHandler {
	return &EntryHandler{svc: svc}
}

type entryRequest struct {
	UserID      string          `json:"userId"`
	ProjectID   *bson.ObjectID  `json:"projectId"`
	EntryType   model.EntryType `json:"entryType"`
	Date        string          `json:"date"`
	Hours       decimal.Decimal `json:"hours"`
	Description string          `json:"description"`
	Note        string          `json:"addedByNote"`
}

func (req entryRequest) input() service.CreateEntryInput {
	return service.CreateEntryInput{
		UserID:      req.UserID,
		ProjectID:   req.ProjectID,
		EntryType:   req.EntryType,
		Date:        req.Date,
		Hours:       req.Hours,
		Description: req.Description,
		Note:        req.Note,
	}
}

type entryUpdateRequest struct {
	ProjectID   *bson.ObjectID   `json:"projectId"`
	Hours       *decimal.Decimal `json:"hours"`
	Description *string          `json:"description"`
	Note        *string          `json:"addedByNote"`
}

func (req entryUpdateRequest) input() service.UpdateEntryInput {
	return service.UpdateEntryInput{
		ProjectID:   req.ProjectID,
		Hours:       req.Hours,
		Description: req.Description,
		Note:        req.Note,
	}
}

// entryFilter reads startDate, endDate, projectId, entryType and (for admin listings)
// userId from the query string.
func entryFilter(r *http.Request) (model.EntryFilter, error) {
	q := r.URL.Query()
	f := model.EntryFilter{
		UserID:    q.Get("userId"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
	if v := q.Get("projectId"); v != "" {
		id, err := service.ParseID(v, "project.err.not_found")
		if err != nil {
			return f, err
		}
		f.ProjectID = &id
	}
	if v := q.Get("entryType"); v != "" {
		f.Types = []model.EntryType{model.EntryType(v)}
	}
	return f, nil
}

func (h *EntryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	f, err := entryFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), caller(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EntryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.svc.Create(r.Context(), caller(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "entry.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.svc.Update(r.Context(), caller(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "entry.err.not_found")
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

func (h *EntryHandler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	f, err := entryFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.svc.AdminList(r.Context(), caller(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) HandleAdminCreate(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.svc.AdminCreate(r.Context(), caller(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) HandleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "entry.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.svc.AdminUpdate(r.Context(), caller(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "entry.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.AdminDelete(r.Context(), caller(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers all time entry routes on the given mux.
func (h *EntryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/time-entries", h.HandleList)
	mux.HandleFunc("POST /api/time-entries", h.HandleCreate)
	mux.HandleFunc("PUT /api/time-entries/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /api/time-entries/{id}", h.HandleDelete)

	// Admin override
	mux.HandleFunc("GET /api/admin/time-entries", h.HandleAdminList)
	mux.HandleFunc("POST /api/admin/time-entries", h.HandleAdminCreate)
	mux.HandleFunc("PUT /api/admin/time-entries/{id}", h.HandleAdminUpdate)
	mux.HandleFunc("DELETE /api/admin/time-entries/{id}", h.HandleAdminDelete)
}
