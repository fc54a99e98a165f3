package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"timeledger/internal/model"
	"timeledger/internal/service"
)

type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type projectRequest struct {
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	HoursBudget decimal.Decimal `json:"hoursBudget"`
}

type projectUpdateRequest struct {
	Name        *string              `json:"name"`
	Code        *string              `json:"code"`
	Description *string              `json:"description"`
	Status      *model.ProjectStatus `json:"status"`
}

type budgetAdjustmentRequest struct {
	AdjustmentAmount *decimal.Decimal `json:"adjustmentAmount"`
	Reason           string           `json:"reason"`
}

type membersRequest struct {
	UserIDs []string `json:"userIds"`
}

func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.svc.Create(r.Context(), caller(r), service.CreateProjectInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		HoursBudget: req.HoursBudget,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// HandleGet returns the project with utilization, optionally limited by startDate/endDate.
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "project.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	u, err := h.svc.Get(r.Context(), caller(r), id, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "project.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req projectUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.svc.Update(r.Context(), caller(r), id, service.UpdateProjectInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) HandleAdjustBudget(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "project.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.AdjustBudget(r.Context(), caller(r), id, req.AdjustmentAmount, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ProjectHandler) HandleBudgetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "project.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.svc.BudgetHistory(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *ProjectHandler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "project.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	members, err := h.svc.Members(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *ProjectHandler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "project.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req membersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	added, err := h.svc.AddMembers(r.Context(), caller(r), id, req.UserIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (h *ProjectHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseID(r.PathValue("id"), "project.err.not_found")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.RemoveMember(r.Context(), caller(r), id, r.PathValue("userId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers all project routes on the given mux.
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.HandleList)
	mux.HandleFunc("POST /api/projects", h.HandleCreate)
	mux.HandleFunc("GET /api/projects/{id}", h.HandleGet)
	mux.HandleFunc("PUT /api/projects/{id}", h.HandleUpdate)

	// Budget ledger
	mux.HandleFunc("POST /api/projects/{id}/budget-adjustment", h.HandleAdjustBudget)
	mux.HandleFunc("GET /api/projects/{id}/budget-history", h.HandleBudgetHistory)

	// Membership
	mux.HandleFunc("GET /api/projects/{id}/members", h.HandleMembers)
	mux.HandleFunc("POST /api/projects/{id}/members", h.HandleAddMembers)
	mux.HandleFunc("DELETE /api/projects/{id}/members/{userId}", h.HandleRemoveMember)
}
