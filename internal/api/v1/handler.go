package v1

import (
	"io"
	"log/slog"

	"okrdash/internal/service"
	"okrdash/internal/timeline"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service  *service.Service
	timeline *timeline.Scheduler
	logger   *slog.Logger
}

func NewHandler(service *service.Service, timeline *timeline.Scheduler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{service: service, timeline: timeline, logger: logger}
	if timeline != nil {
		timeline.OnRemove(h.logRemoval)
	}
	return h
}

// logRemoval records entries leaving the timeline, including those pruned
// after their key result was deleted.
func (h *Handler) logRemoval(keyResultID string) {
	h.logger.Info("timeline entry removed", slog.String("key_result_id", keyResultID))
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/dashboard", h.handleDashboard)
	r.Get("/users", h.handleUsers)

	r.Get("/departments", h.handleDepartments)
	r.Get("/departments/{departmentID}", h.handleDepartment)
	r.Get("/departments/{departmentID}/objectives", h.handleDepartmentObjectives)
	r.Put("/departments/{departmentID}/objectives", h.handleReplaceObjectives)
	r.Post("/departments/{departmentID}/objectives", h.handleCreateObjective)
	r.Post("/departments/{departmentID}/stats/recalculate", h.handleRecalculateDepartment)

	r.Get("/objectives/{objectiveID}", h.handleObjective)
	r.Patch("/objectives/{objectiveID}", h.handleUpdateObjective)
	r.Delete("/objectives/{objectiveID}", h.handleDeleteObjective)
	r.Post("/objectives/{objectiveID}/key-results", h.handleCreateKeyResult)
	r.Patch("/objectives/{objectiveID}/key-results/{krID}", h.handleUpdateKeyResult)
	r.Post("/objectives/{objectiveID}/key-results/{krID}/progress", h.handleUpdateProgress)
	r.Delete("/objectives/{objectiveID}/key-results/{krID}", h.handleDeleteKeyResult)

	r.Get("/cycle", h.handleCycle)
	r.Put("/cycle/dates", h.handleUpdateDates)
	r.Put("/cycle/label", h.handleUpdateCycleLabel)
	r.Put("/cycle/current-date", h.handleSetCurrentDate)

	r.Get("/stats", h.handleStats)
	r.Post("/stats/recalculate", h.handleRecalculateAll)

	r.Get("/company/objectives", h.handleCompanyObjectives)
	r.Put("/company/objectives", h.handleReplaceCompanyObjectives)
	r.Post("/company/objectives", h.handleCreateCompanyObjective)
	r.Delete("/company/objectives/{objectiveID}", h.handleDeleteCompanyObjective)
	r.Post("/company/objectives/{objectiveID}/key-results", h.handleCreateCompanyKeyResult)

	r.Get("/timeline", h.handleTimeline)
	r.Get("/timeline/entries", h.handleTimelineEntries)
	r.Post("/timeline/entries", h.handlePlaceEntry)
	r.Post("/timeline/entries/{krID}/resize", h.handleResizeEntry)
	r.Post("/timeline/entries/{krID}/move", h.handleMoveEntry)
	r.Post("/timeline/entries/{krID}/resize-session", h.handleBeginResize)
	r.Post("/timeline/entries/{krID}/resize-session/drag", h.handleDragResize)
	r.Post("/timeline/entries/{krID}/resize-session/end", h.handleEndResize)
	r.Delete("/timeline/entries/{krID}/resize-session", h.handleCancelResize)
	r.Delete("/timeline/entries/{krID}", h.handleRemoveEntry)
	r.Put("/timeline/selection", h.handleSelectEntry)

	return r
}
