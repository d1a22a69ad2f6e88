package v1

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"okrdash/internal/domain"
	"okrdash/internal/okr"

	"cloud.google.com/go/civil"
)

// editableNumber is a numeric field typed by a user. It accepts a JSON number or
// a string holding one.
type editableNumber json.RawMessage

func (n *editableNumber) UnmarshalJSON(raw []byte) error {
	*n = append((*n)[:0], raw...)
	return nil
}

// value returns nil when the field was omitted or null.
func (n editableNumber) value() (*float64, error) {
	if len(n) == 0 || string(n) == "null" {
		return nil, nil
	}
	text := string(n)
	var s string
	if err := json.Unmarshal(n, &s); err == nil {
		text = s
	}
	v, err := okr.ParseValue(text)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseNumbers resolves every named field and collects a message per bad one.
func parseNumbers(fields map[string]editableNumber) (map[string]*float64, map[string]string) {
	values := make(map[string]*float64, len(fields))
	var problems map[string]string
	for name, field := range fields {
		v, err := field.value()
		if err != nil {
			if problems == nil {
				problems = make(map[string]string)
			}
			problems[name] = "must be a number"
			continue
		}
		values[name] = v
	}
	return values, problems
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return false
	}
	return true
}

func parseDate(value string) (civil.Date, error) {
	return civil.ParseDate(strings.TrimSpace(value))
}

func parseView(value string) domain.ViewMode {
	if value == "" {
		return domain.ViewWeek
	}
	return domain.ViewMode(strings.ToLower(value))
}

func parseZoom(value string) float64 {
	if value == "" {
		return 1
	}
	zoom, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 1
	}
	return zoom
}
