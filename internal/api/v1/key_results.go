package v1

import (
	"fmt"
	"net/http"
	"strings"

	"okrdash/internal/domain"
	"okrdash/internal/service"

	"github.com/go-chi/chi/v5"
)

type keyResultRequest struct {
	Title        string            `json:"title"`
	Metric       domain.MetricKind `json:"metric"`
	StartValue   editableNumber    `json:"start_value"`
	TargetValue  editableNumber    `json:"target_value"`
	CurrentValue editableNumber    `json:"current_value"`
	OwnerID      string            `json:"owner_id"`
	Confidence   domain.Confidence `json:"confidence"`
}

type updateKeyResultRequest struct {
	Title        *string            `json:"title"`
	Metric       *domain.MetricKind `json:"metric"`
	StartValue   editableNumber     `json:"start_value"`
	TargetValue  editableNumber     `json:"target_value"`
	CurrentValue editableNumber     `json:"current_value"`
	OwnerID      *string            `json:"owner_id"`
	Status       *domain.Status     `json:"status"`
	Confidence   *domain.Confidence `json:"confidence"`
}

// progressRequest records a check-in: a typed value, or done for yes/no key results.
type progressRequest struct {
	Value editableNumber `json:"value"`
	Done  *bool          `json:"done"`
}

func (req keyResultRequest) draft() (service.KeyResultDraft, map[string]string) {
	values, fields := parseNumbers(map[string]editableNumber{
		"start_value":   req.StartValue,
		"target_value":  req.TargetValue,
		"current_value": req.CurrentValue,
	})
	if strings.TrimSpace(req.Title) == "" {
		if fields == nil {
			fields = make(map[string]string)
		}
		fields["title"] = "required"
	}
	if fields != nil {
		return service.KeyResultDraft{}, fields
	}
	draft := service.KeyResultDraft{
		Title:      req.Title,
		Metric:     req.Metric,
		OwnerID:    req.OwnerID,
		Confidence: req.Confidence,
	}
	if v := values["start_value"]; v != nil {
		draft.StartValue = *v
	}
	if v := values["target_value"]; v != nil {
		draft.TargetValue = *v
	} else if req.Metric == domain.MetricYesNo {
		draft.TargetValue = 1
	} else {
		draft.TargetValue = 100
	}
	if v := values["current_value"]; v != nil {
		draft.CurrentValue = *v
	}
	return draft, nil
}

func prefixFields(fields map[string]string, prefix string, index int) map[string]string {
	out := make(map[string]string, len(fields))
	for name, message := range fields {
		out[fmt.Sprintf("%s[%d].%s", prefix, index, name)] = message
	}
	return out
}

func (h *Handler) handleCreateKeyResult(w http.ResponseWriter, r *http.Request) {
	var req keyResultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	draft, fields := req.draft()
	if fields != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid key result", fields)
		return
	}
	kr, err := h.service.AddKeyResult(r.Context(), chi.URLParam(r, "objectiveID"), draft)
	if err != nil {
		h.writeServiceError(w, err, "failed to create key result")
		return
	}
	writeJSON(w, http.StatusCreated, h.buildKeyResult(kr))
}

// handleUpdateKeyResult applies a partial update. A field that is not a number is
// rejected and the stored value stays as it was.
func (h *Handler) handleUpdateKeyResult(w http.ResponseWriter, r *http.Request) {
	var req updateKeyResultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	values, fields := parseNumbers(map[string]editableNumber{
		"start_value":   req.StartValue,
		"target_value":  req.TargetValue,
		"current_value": req.CurrentValue,
	})
	if fields != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid key result", fields)
		return
	}
	h.updateKeyResult(w, r, service.KeyResultPatch{
		Title:        req.Title,
		Metric:       req.Metric,
		StartValue:   values["start_value"],
		TargetValue:  values["target_value"],
		CurrentValue: values["current_value"],
		OwnerID:      req.OwnerID,
		Status:       req.Status,
		Confidence:   req.Confidence,
	})
}

func (h *Handler) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var current *float64
	if req.Done != nil {
		v := 0.0
		if *req.Done {
			v = 1
		}
		current = &v
	} else {
		v, err := req.Value.value()
		if err != nil || v == nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid progress", map[string]string{"value": "must be a number"})
			return
		}
		current = v
	}
	h.updateKeyResult(w, r, service.KeyResultPatch{CurrentValue: current})
}

func (h *Handler) updateKeyResult(w http.ResponseWriter, r *http.Request, patch service.KeyResultPatch) {
	kr, err := h.service.UpdateKeyResult(r.Context(), chi.URLParam(r, "objectiveID"), chi.URLParam(r, "krID"), patch)
	if err != nil {
		h.writeServiceError(w, err, "failed to update key result")
		return
	}
	writeJSON(w, http.StatusOK, h.buildKeyResult(kr))
}

func (h *Handler) handleDeleteKeyResult(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteKeyResult(r.Context(), chi.URLParam(r, "objectiveID"), chi.URLParam(r, "krID")); err != nil {
		h.writeServiceError(w, err, "failed to delete key result")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
