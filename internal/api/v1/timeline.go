package v1

import (
	"net/http"

	"okrdash/internal/domain"
	"okrdash/internal/timeline"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
)

// placeRequest schedules a key result either at Date or, when X is set, at the
// date under X on the axis described by View, ViewStart and Zoom.
type placeRequest struct {
	ObjectiveID string          `json:"objective_id"`
	KeyResultID string          `json:"key_result_id"`
	View        domain.ViewMode `json:"view"`
	Date        string          `json:"date"`
	X           *float64        `json:"x"`
	ViewStart   string          `json:"view_start"`
	Zoom        float64         `json:"zoom"`
}

type resizeRequest struct {
	Edge domain.Edge `json:"edge"`
	Date string      `json:"date"`
}

// beginResizeRequest opens a drag on one edge; OriginX is the pointer position on
// the axis described by View, ViewStart and Zoom.
type beginResizeRequest struct {
	Edge      domain.Edge     `json:"edge"`
	OriginX   float64         `json:"origin_x"`
	View      domain.ViewMode `json:"view"`
	ViewStart string          `json:"view_start"`
	Zoom      float64         `json:"zoom"`
}

type dragRequest struct {
	X float64 `json:"x"`
}

type moveRequest struct {
	StartDate string `json:"start_date"`
}

type selectRequest struct {
	KeyResultID string `json:"key_result_id"`
}

// handleTimeline renders the visible bars for ?view=&start=&zoom=.
func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	view := parseView(query.Get("view"))
	if !view.Valid() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid view", map[string]string{"view": "day, week, month or quarter"})
		return
	}
	start := civil.DateOf(h.service.Now())
	if raw := query.Get("start"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid start", map[string]string{"start": "expected YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	axis := timeline.NewAxis(view, timeline.AlignViewStart(view, start), parseZoom(query.Get("zoom")))
	selected, _ := h.timeline.Selected()
	writeJSON(w, http.StatusOK, timelineResponse{
		View:     axis.View,
		Start:    axis.First(),
		End:      axis.Last(),
		Zoom:     axis.Zoom,
		DayWidth: axis.DayWidth(),
		Selected: selected,
		Prev:     axis.Prev().First(),
		Next:     axis.Next().First(),
		Bars:     h.timeline.Render(axis),
	})
}

func (h *Handler) handleTimelineEntries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, itemsResponse[domain.TimelineEntry]{Items: h.timeline.Entries()})
}

func (h *Handler) handlePlaceEntry(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.KeyResultID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "key result required", map[string]string{"key_result_id": "required"})
		return
	}
	view := parseView(string(req.View))

	var (
		entry domain.TimelineEntry
		err   error
	)
	if req.X != nil {
		viewStart, perr := parseDate(req.ViewStart)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid view start", map[string]string{"view_start": "expected YYYY-MM-DD"})
			return
		}
		if !view.Valid() {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", timeline.ErrInvalidView.Error(), map[string]string{"view": "day, week, month or quarter"})
			return
		}
		axis := timeline.NewAxis(view, viewStart, req.Zoom)
		entry, err = h.timeline.PlaceAt(r.Context(), req.ObjectiveID, req.KeyResultID, axis, *req.X)
	} else {
		date, perr := parseDate(req.Date)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid date", map[string]string{"date": "expected YYYY-MM-DD"})
			return
		}
		entry, err = h.timeline.Place(r.Context(), req.ObjectiveID, req.KeyResultID, date, view)
	}
	if err != nil {
		h.writeServiceError(w, err, "failed to place key result")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleResizeEntry(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid date", map[string]string{"date": "expected YYYY-MM-DD"})
		return
	}
	entry, err := h.timeline.Resize(r.Context(), chi.URLParam(r, "krID"), req.Edge, date)
	if err != nil {
		h.writeServiceError(w, err, "failed to resize entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleMoveEntry(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid start date", map[string]string{"start_date": "expected YYYY-MM-DD"})
		return
	}
	entry, err := h.timeline.Move(r.Context(), chi.URLParam(r, "krID"), start)
	if err != nil {
		h.writeServiceError(w, err, "failed to move entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleBeginResize(w http.ResponseWriter, r *http.Request) {
	var req beginResizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view := parseView(string(req.View))
	if !view.Valid() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", timeline.ErrInvalidView.Error(), map[string]string{"view": "day, week, month or quarter"})
		return
	}
	viewStart, err := parseDate(req.ViewStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid view start", map[string]string{"view_start": "expected YYYY-MM-DD"})
		return
	}
	krID := chi.URLParam(r, "krID")
	axis := timeline.NewAxis(view, viewStart, req.Zoom)
	if _, err := h.timeline.BeginResize(krID, req.Edge, req.OriginX, axis); err != nil {
		h.writeServiceError(w, err, "failed to begin resize")
		return
	}
	entry, _ := h.timeline.Entry(krID)
	writeJSON(w, http.StatusCreated, entry)
}

// openSession writes a 404 when no drag is open for the key result.
func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) (*timeline.ResizeSession, bool) {
	session, ok := h.timeline.Session(chi.URLParam(r, "krID"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no resize in progress", nil)
	}
	return session, ok
}

func (h *Handler) handleDragResize(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, ok := h.openSession(w, r)
	if !ok {
		return
	}
	entry, err := session.Drag(req.X)
	if err != nil {
		h.writeServiceError(w, err, "failed to drag edge")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleEndResize(w http.ResponseWriter, r *http.Request) {
	session, ok := h.openSession(w, r)
	if !ok {
		return
	}
	entry, err := session.End(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to end resize")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleCancelResize(w http.ResponseWriter, r *http.Request) {
	session, ok := h.openSession(w, r)
	if !ok {
		return
	}
	session.Cancel()
	entry, _ := h.timeline.Entry(chi.URLParam(r, "krID"))
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.timeline.Remove(r.Context(), chi.URLParam(r, "krID")); err != nil {
		h.writeServiceError(w, err, "failed to remove entry")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// handleSelectEntry selects a scheduled key result; an empty id clears the selection.
func (h *Handler) handleSelectEntry(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.KeyResultID != "" {
		if _, ok := h.timeline.Entry(req.KeyResultID); !ok {
			h.writeServiceError(w, timeline.ErrNotScheduled, "failed to select entry")
			return
		}
	}
	h.timeline.Select(req.KeyResultID)
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
