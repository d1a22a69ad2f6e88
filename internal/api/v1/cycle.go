package v1

import (
	"net/http"

	"cloud.google.com/go/civil"
)

type updateDatesRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type updateCycleLabelRequest struct {
	Cycle string `json:"cycle"`
}

// currentDateRequest sets the manual "today"; a null or empty date restores the clock.
type currentDateRequest struct {
	Date *string `json:"date"`
}

func (h *Handler) cycleResponse() cycleResponse {
	return cycleResponse{CycleWindow: h.service.Window(), Today: civil.DateOf(h.service.Now())}
}

func (h *Handler) handleCycle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cycleResponse())
}

func (h *Handler) handleUpdateDates(w http.ResponseWriter, r *http.Request) {
	var req updateDatesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	fields := make(map[string]string)
	start, err := parseDate(req.StartDate)
	if err != nil {
		fields["start_date"] = "expected YYYY-MM-DD"
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		fields["end_date"] = "expected YYYY-MM-DD"
	}
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid dates", fields)
		return
	}
	if err := h.service.UpdateGlobalDates(r.Context(), start, end); err != nil {
		h.writeServiceError(w, err, "failed to update cycle dates")
		return
	}
	writeJSON(w, http.StatusOK, h.cycleResponse())
}

func (h *Handler) handleUpdateCycleLabel(w http.ResponseWriter, r *http.Request) {
	var req updateCycleLabelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.UpdateCycle(r.Context(), req.Cycle); err != nil {
		h.writeServiceError(w, err, "failed to update cycle")
		return
	}
	writeJSON(w, http.StatusOK, h.cycleResponse())
}

func (h *Handler) handleSetCurrentDate(w http.ResponseWriter, r *http.Request) {
	var req currentDateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var manual *civil.Date
	if req.Date != nil && *req.Date != "" {
		date, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid date", map[string]string{"date": "expected YYYY-MM-DD"})
			return
		}
		manual = &date
	}
	if err := h.service.SetManualCurrentDate(r.Context(), manual); err != nil {
		h.writeServiceError(w, err, "failed to set current date")
		return
	}
	writeJSON(w, http.StatusOK, h.cycleResponse())
}
