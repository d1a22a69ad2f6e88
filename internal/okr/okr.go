package okr

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"okrdash/internal/domain"
)

var ErrNotNumeric = errors.New("value is not a number")

// KeyResultProgress returns completion in [0,100]. Inputs must not be NaN.
func KeyResultProgress(metric domain.MetricKind, start, target, current float64) int {
	if metric == domain.MetricYesNo {
		return BooleanProgress(current > 0)
	}
	if start == target {
		return 100
	}
	return clampPercent(linearPercent(start, target, current))
}

func ObjectiveProgress(keyResults []domain.KeyResult) int {
	if len(keyResults) == 0 {
		return 0
	}
	var sum int
	for _, kr := range keyResults {
		sum += kr.Progress
	}
	return int(math.Round(float64(sum) / float64(len(keyResults))))
}

func DepartmentProgress(objectives []domain.Objective) int {
	if len(objectives) == 0 {
		return 0
	}
	var sum int
	for _, objective := range objectives {
		sum += objective.Progress
	}
	return int(math.Round(float64(sum) / float64(len(objectives))))
}

func BooleanProgress(done bool) int {
	if done {
		return 100
	}
	return 0
}

// StatusFromProgress derives a key result status. Its thresholds are independent of ProgressBand.
func StatusFromProgress(progress int) domain.Status {
	switch {
	case progress >= 100:
		return domain.StatusCompleted
	case progress >= 80:
		return domain.StatusOnTrack
	case progress >= 50:
		return domain.StatusAtRisk
	default:
		return domain.StatusOffTrack
	}
}

type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// ProgressBand is the display banding used for progress bars.
func ProgressBand(progress int) Band {
	switch {
	case progress < 30:
		return BandLow
	case progress < 70:
		return BandMedium
	default:
		return BandHigh
	}
}

// ParseValue validates text typed into an editable numeric field.
func ParseValue(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrNotNumeric
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, ErrNotNumeric
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrNotNumeric
	}
	return value, nil
}

func linearPercent(start, target, current float64) float64 {
	return ((current - start) / (target - start)) * 100
}

func clampPercent(value float64) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return int(math.Round(value))
}
