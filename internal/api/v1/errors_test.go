package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"okrdash/internal/okr"
	"okrdash/internal/service"
	"okrdash/internal/timeline"
)

func TestWriteError(t *testing.T) {
	recorder := httptest.NewRecorder()
	writeError(recorder, http.StatusBadRequest, "VALIDATION_ERROR", "invalid", map[string]string{"field": "required"})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if response.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected code VALIDATION_ERROR")
	}
	if response.Error.Fields["field"] != "required" {
		t.Fatalf("expected field error")
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{err: service.ErrObjectiveNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{err: timeline.ErrNotScheduled, status: http.StatusNotFound, code: "NOT_FOUND"},
		{err: service.ErrLastKeyResult, status: http.StatusConflict, code: "CONFLICT"},
		{err: timeline.ErrAlreadyScheduled, status: http.StatusConflict, code: "CONFLICT"},
		{err: fmt.Errorf("%w: metric %q", service.ErrInvalidValue, "bogus"), status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{err: okr.ErrNotNumeric, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{err: fmt.Errorf("disk full"), status: http.StatusInternalServerError, code: "INTERNAL"},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: expected %d %s got %d %s", tc.err, tc.status, tc.code, status, code)
		}
	}
}

func TestEditableNumber(t *testing.T) {
	cases := []struct {
		raw     string
		want    float64
		present bool
		invalid bool
	}{
		{raw: `{"v": 12.5}`, want: 12.5, present: true},
		{raw: `{"v": " 40 "}`, want: 40, present: true},
		{raw: `{"v": null}`},
		{raw: `{}`},
		{raw: `{"v": "abc"}`, invalid: true},
		{raw: `{"v": ""}`, invalid: true},
		{raw: `{"v": true}`, invalid: true},
	}
	for _, tc := range cases {
		var body struct {
			V editableNumber `json:"v"`
		}
		if err := json.Unmarshal([]byte(tc.raw), &body); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.raw, err)
		}
		got, err := body.V.value()
		if tc.invalid {
			if err == nil {
				t.Fatalf("%s: expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.raw, err)
		}
		if (got != nil) != tc.present {
			t.Fatalf("%s: expected present=%v got %v", tc.raw, tc.present, got)
		}
		if got != nil && *got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.raw, tc.want, *got)
		}
	}
}
