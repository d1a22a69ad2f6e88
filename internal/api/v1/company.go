package v1

import (
	"net/http"

	"okrdash/internal/domain"

	"github.com/go-chi/chi/v5"
)

type titleRequest struct {
	Title string `json:"title"`
}

type replaceCompanyRequest struct {
	Objectives []domain.CompanyObjective `json:"objectives"`
}

func (h *Handler) handleCompanyObjectives(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, itemsResponse[domain.CompanyObjective]{Items: h.service.CompanyObjectives()})
}

func (h *Handler) handleReplaceCompanyObjectives(w http.ResponseWriter, r *http.Request) {
	var req replaceCompanyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.service.ReplaceCompanyObjectives(r.Context(), req.Objectives)
	writeJSON(w, http.StatusOK, itemsResponse[domain.CompanyObjective]{Items: h.service.CompanyObjectives()})
}

func (h *Handler) handleCreateCompanyObjective(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	objective, err := h.service.AddCompanyObjective(r.Context(), req.Title)
	if err != nil {
		h.writeServiceError(w, err, "failed to create company objective")
		return
	}
	writeJSON(w, http.StatusCreated, objective)
}

func (h *Handler) handleCreateCompanyKeyResult(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kr, err := h.service.AddCompanyKeyResult(r.Context(), chi.URLParam(r, "objectiveID"), req.Title)
	if err != nil {
		h.writeServiceError(w, err, "failed to create company key result")
		return
	}
	writeJSON(w, http.StatusCreated, kr)
}

func (h *Handler) handleDeleteCompanyObjective(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCompanyObjective(r.Context(), chi.URLParam(r, "objectiveID")); err != nil {
		h.writeServiceError(w, err, "failed to delete company objective")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
