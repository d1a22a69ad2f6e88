package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"okrdash/internal/okr"
	"okrdash/internal/service"
	"okrdash/internal/timeline"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Fields: fields}})
}

// errorStatus maps core sentinels onto the status and code of the error envelope.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrObjectiveNotFound),
		errors.Is(err, service.ErrKeyResultNotFound),
		errors.Is(err, service.ErrDepartmentNotFound),
		errors.Is(err, timeline.ErrNotScheduled),
		errors.Is(err, timeline.ErrUnknownKeyResult):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrLastKeyResult),
		errors.Is(err, timeline.ErrAlreadyScheduled),
		errors.Is(err, timeline.ErrResizeInProgress),
		errors.Is(err, timeline.ErrSessionClosed):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, service.ErrInvalidValue),
		errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, timeline.ErrInvalidEdge),
		errors.Is(err, timeline.ErrInvalidView),
		errors.Is(err, timeline.ErrInvalidDate),
		errors.Is(err, okr.ErrNotNumeric):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, message string) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, slog.String("error", err.Error()))
		writeError(w, status, code, message, nil)
		return
	}
	writeError(w, status, code, err.Error(), nil)
}
