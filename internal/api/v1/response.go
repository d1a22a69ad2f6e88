package v1

import (
	"okrdash/internal/domain"
	"okrdash/internal/okr"
	"okrdash/internal/timeline"

	"cloud.google.com/go/civil"
)

type departmentInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type departmentSummary struct {
	departmentInfo
	Stats           domain.DepartmentStats `json:"stats"`
	Band            okr.Band               `json:"band"`
	ObjectivesCount int                    `json:"objectives_count"`
}

type departmentsResponse struct {
	Cycle domain.CycleWindow  `json:"cycle"`
	Items []departmentSummary `json:"items"`
}

type departmentResponse struct {
	Department departmentInfo         `json:"department"`
	Stats      domain.DepartmentStats `json:"stats"`
	Band       okr.Band               `json:"band"`
	Objectives []objectiveView        `json:"objectives"`
}

type objectiveView struct {
	domain.Objective
	Band       okr.Band        `json:"band"`
	Owner      string          `json:"owner,omitempty"`
	KeyResults []keyResultView `json:"key_results"`
}

type keyResultView struct {
	domain.KeyResult
	Band  okr.Band `json:"band"`
	Owner string   `json:"owner,omitempty"`
}

type dashboardResponse struct {
	Cycle       domain.CycleWindow        `json:"cycle"`
	Today       civil.Date                `json:"today"`
	Company     []domain.CompanyObjective `json:"company_objectives"`
	Departments []departmentResponse      `json:"departments"`
}

type userView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

type cycleResponse struct {
	domain.CycleWindow
	Today civil.Date `json:"today"`
}

type timelineResponse struct {
	View     domain.ViewMode `json:"view"`
	Start    civil.Date      `json:"start"`
	End      civil.Date      `json:"end"`
	Zoom     float64         `json:"zoom"`
	DayWidth float64         `json:"day_width"`
	Selected string          `json:"selected,omitempty"`
	Prev     civil.Date      `json:"prev"`
	Next     civil.Date      `json:"next"`
	Bars     []timeline.Bar  `json:"bars"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) departmentInfo(id string) departmentInfo {
	if department, ok := h.service.Directory().DepartmentByID(id); ok {
		return departmentInfo{ID: department.ID, Name: department.Name, Color: department.Color}
	}
	return departmentInfo{ID: id, Name: id}
}

func (h *Handler) ownerName(id string) string {
	if user, ok := h.service.Directory().UserByID(id); ok {
		return user.Name
	}
	return ""
}

func (h *Handler) buildObjective(objective domain.Objective) objectiveView {
	view := objectiveView{
		Objective:  objective,
		Band:       okr.ProgressBand(objective.Progress),
		Owner:      h.ownerName(objective.OwnerID),
		KeyResults: make([]keyResultView, 0, len(objective.KeyResults)),
	}
	for _, kr := range objective.KeyResults {
		view.KeyResults = append(view.KeyResults, h.buildKeyResult(kr))
	}
	return view
}

func (h *Handler) buildKeyResult(kr domain.KeyResult) keyResultView {
	return keyResultView{KeyResult: kr, Band: okr.ProgressBand(kr.Progress), Owner: h.ownerName(kr.OwnerID)}
}

func (h *Handler) buildDepartment(id string) departmentResponse {
	stats, _ := h.service.Stats(id)
	objectives := h.service.Objectives(id)
	resp := departmentResponse{
		Department: h.departmentInfo(id),
		Stats:      stats,
		Band:       okr.ProgressBand(stats.OverallProgress),
		Objectives: make([]objectiveView, 0, len(objectives)),
	}
	for _, objective := range objectives {
		resp.Objectives = append(resp.Objectives, h.buildObjective(objective))
	}
	return resp
}

func (h *Handler) knownDepartment(id string) bool {
	for _, known := range h.service.Departments() {
		if known == id {
			return true
		}
	}
	return false
}
