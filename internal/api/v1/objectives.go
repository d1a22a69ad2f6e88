package v1

import (
	"net/http"
	"strings"

	"okrdash/internal/domain"
	"okrdash/internal/service"

	"github.com/go-chi/chi/v5"
)

type createObjectiveRequest struct {
	Title      string             `json:"title"`
	OwnerID    string             `json:"owner_id"`
	KeyResults []keyResultRequest `json:"key_results"`
}

type updateObjectiveRequest struct {
	Title   *string `json:"title"`
	OwnerID *string `json:"owner_id"`
}

type replaceObjectivesRequest struct {
	Objectives []domain.Objective `json:"objectives"`
}

func (h *Handler) handleObjective(w http.ResponseWriter, r *http.Request) {
	objective, err := h.service.Objective(chi.URLParam(r, "objectiveID"))
	if err != nil {
		h.writeServiceError(w, err, "failed to load objective")
		return
	}
	writeJSON(w, http.StatusOK, h.buildObjective(objective))
}

// handleReplaceObjectives replaces a department's objectives wholesale.
func (h *Handler) handleReplaceObjectives(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentID")
	var req replaceObjectivesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.UpdateObjectives(r.Context(), departmentID, req.Objectives); err != nil {
		h.writeServiceError(w, err, "failed to update objectives")
		return
	}
	writeJSON(w, http.StatusOK, h.buildDepartment(departmentID))
}

func (h *Handler) handleCreateObjective(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentID")
	var req createObjectiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "title required", map[string]string{"title": "required"})
		return
	}
	draft := service.ObjectiveDraft{Title: req.Title, OwnerID: req.OwnerID}
	for i, krReq := range req.KeyResults {
		krDraft, fields := krReq.draft()
		if fields != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid key result", prefixFields(fields, "key_results", i))
			return
		}
		draft.KeyResults = append(draft.KeyResults, krDraft)
	}
	objective, err := h.service.AddObjective(r.Context(), departmentID, draft)
	if err != nil {
		h.writeServiceError(w, err, "failed to create objective")
		return
	}
	writeJSON(w, http.StatusCreated, h.buildObjective(objective))
}

func (h *Handler) handleUpdateObjective(w http.ResponseWriter, r *http.Request) {
	var req updateObjectiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "title required", map[string]string{"title": "required"})
		return
	}
	objective, err := h.service.UpdateObjective(r.Context(), chi.URLParam(r, "objectiveID"), service.ObjectivePatch{
		Title:   req.Title,
		OwnerID: req.OwnerID,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to update objective")
		return
	}
	writeJSON(w, http.StatusOK, h.buildObjective(objective))
}

func (h *Handler) handleDeleteObjective(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteObjective(r.Context(), chi.URLParam(r, "objectiveID")); err != nil {
		h.writeServiceError(w, err, "failed to delete objective")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
