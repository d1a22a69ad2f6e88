package v1

import (
	"net/http"

	"okrdash/internal/okr"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
)

// handleDashboard returns every department with its objectives and stats.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ids := h.service.Departments()
	resp := dashboardResponse{
		Cycle:       h.service.Window(),
		Today:       civil.DateOf(h.service.Now()),
		Company:     h.service.CompanyObjectives(),
		Departments: make([]departmentResponse, 0, len(ids)),
	}
	for _, id := range ids {
		resp.Departments = append(resp.Departments, h.buildDepartment(id))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	users := h.service.Directory().Users()
	items := make([]userView, 0, len(users))
	for _, user := range users {
		items = append(items, userView{ID: user.ID, Name: user.Name, Role: user.Role, DepartmentID: user.DepartmentID})
	}
	writeJSON(w, http.StatusOK, itemsResponse[userView]{Items: items})
}

func (h *Handler) handleDepartments(w http.ResponseWriter, r *http.Request) {
	ids := h.service.Departments()
	resp := departmentsResponse{Cycle: h.service.Window(), Items: make([]departmentSummary, 0, len(ids))}
	for _, id := range ids {
		stats, _ := h.service.Stats(id)
		resp.Items = append(resp.Items, departmentSummary{
			departmentInfo:  h.departmentInfo(id),
			Stats:           stats,
			Band:            okr.ProgressBand(stats.OverallProgress),
			ObjectivesCount: len(h.service.Objectives(id)),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentID")
	if !h.knownDepartment(departmentID) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "department not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.buildDepartment(departmentID))
}

func (h *Handler) handleDepartmentObjectives(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentID")
	if !h.knownDepartment(departmentID) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "department not found", nil)
		return
	}
	objectives := h.service.Objectives(departmentID)
	items := make([]objectiveView, 0, len(objectives))
	for _, objective := range objectives {
		items = append(items, h.buildObjective(objective))
	}
	writeJSON(w, http.StatusOK, itemsResponse[objectiveView]{Items: items})
}

func (h *Handler) handleRecalculateDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentID")
	if !h.knownDepartment(departmentID) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "department not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.service.RecalculateStats(r.Context(), departmentID))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.AllStats())
}

func (h *Handler) handleRecalculateAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.RecalculateAllStats(r.Context()))
}
