package okr

import (
	"errors"
	"testing"

	"okrdash/internal/domain"
)

func TestKeyResultProgress(t *testing.T) {
	cases := []struct {
		name    string
		metric  domain.MetricKind
		start   float64
		target  float64
		current float64
		expect  int
	}{
		{name: "at start", metric: domain.MetricPercentage, start: 0, target: 100, current: 0, expect: 0},
		{name: "half way", metric: domain.MetricPercentage, start: 0, target: 100, current: 50, expect: 50},
		{name: "at target", metric: domain.MetricNumerical, start: 1000, target: 1500, current: 1500, expect: 100},
		{name: "overshoot", metric: domain.MetricNumerical, start: 1000, target: 1500, current: 2000, expect: 100},
		{name: "below start", metric: domain.MetricNumerical, start: 10, target: 20, current: 5, expect: 0},
		{name: "descending", metric: domain.MetricNumerical, start: 100, target: 0, current: 25, expect: 75},
		{name: "rounding", metric: domain.MetricPercentage, start: 0, target: 3, current: 1, expect: 33},
		{name: "degenerate range", metric: domain.MetricNumerical, start: 5, target: 5, current: 0, expect: 100},
		{name: "yes", metric: domain.MetricYesNo, start: 0, target: 1, current: 1, expect: 100},
		{name: "no", metric: domain.MetricYesNo, start: 0, target: 1, current: 0, expect: 0},
		{name: "yes ignores range", metric: domain.MetricYesNo, start: 7, target: 7, current: 0.5, expect: 100},
		{name: "no ignores range", metric: domain.MetricYesNo, start: 0, target: 100, current: -3, expect: 0},
	}
	for _, tc := range cases {
		if got := KeyResultProgress(tc.metric, tc.start, tc.target, tc.current); got != tc.expect {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.expect, got)
		}
	}
}

func TestKeyResultProgressMonotonic(t *testing.T) {
	ranges := [][2]float64{{0, 100}, {100, 0}, {-50, 50}, {3, 4}}
	for _, r := range ranges {
		prev := -1
		step := (r[1] - r[0]) / 40
		for i := -10; i <= 50; i++ {
			current := r[0] + float64(i)*step
			got := KeyResultProgress(domain.MetricNumerical, r[0], r[1], current)
			if got < 0 || got > 100 {
				t.Fatalf("range %v: progress %d out of bounds", r, got)
			}
			if got < prev {
				t.Fatalf("range %v: progress decreased from %d to %d", r, prev, got)
			}
			prev = got
		}
	}
}

func TestObjectiveProgress(t *testing.T) {
	cases := []struct {
		name   string
		krs    []domain.KeyResult
		expect int
	}{
		{name: "no krs", krs: nil, expect: 0},
		{name: "uniform", krs: []domain.KeyResult{{Progress: 42}, {Progress: 42}, {Progress: 42}}, expect: 42},
		{name: "mean", krs: []domain.KeyResult{{Progress: 20}, {Progress: 40}, {Progress: 60}, {Progress: 80}, {Progress: 100}}, expect: 60},
		{name: "rounds half up", krs: []domain.KeyResult{{Progress: 0}, {Progress: 1}}, expect: 1},
	}
	for _, tc := range cases {
		if got := ObjectiveProgress(tc.krs); got != tc.expect {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.expect, got)
		}
	}
}

func TestDepartmentProgress(t *testing.T) {
	objectives := []domain.Objective{{Progress: 100}, {Progress: 50}}
	if got := DepartmentProgress(objectives); got != 75 {
		t.Fatalf("expected 75 got %d", got)
	}
	if got := DepartmentProgress(nil); got != 0 {
		t.Fatalf("expected 0 got %d", got)
	}
}

func TestStatusFromProgress(t *testing.T) {
	cases := map[int]domain.Status{
		0:   domain.StatusOffTrack,
		49:  domain.StatusOffTrack,
		50:  domain.StatusAtRisk,
		79:  domain.StatusAtRisk,
		80:  domain.StatusOnTrack,
		99:  domain.StatusOnTrack,
		100: domain.StatusCompleted,
	}
	for progress, expect := range cases {
		if got := StatusFromProgress(progress); got != expect {
			t.Fatalf("progress %d: expected %s got %s", progress, expect, got)
		}
	}
}

func TestProgressBand(t *testing.T) {
	if got := ProgressBand(29); got != BandLow {
		t.Fatalf("expected low got %s", got)
	}
	if got := ProgressBand(30); got != BandMedium {
		t.Fatalf("expected medium got %s", got)
	}
	if got := ProgressBand(70); got != BandHigh {
		t.Fatalf("expected high got %s", got)
	}
	// 60 is AtRisk as a status but already "medium" on the display band.
	if StatusFromProgress(60) != domain.StatusAtRisk || ProgressBand(60) != BandMedium {
		t.Fatalf("unexpected mapping for 60")
	}
}

func TestParseValue(t *testing.T) {
	if got, err := ParseValue(" 12.5 "); err != nil || got != 12.5 {
		t.Fatalf("expected 12.5 got %v (%v)", got, err)
	}
	for _, raw := range []string{"", "abc", "12abc", "NaN", "Inf", "-Inf"} {
		if _, err := ParseValue(raw); !errors.Is(err, ErrNotNumeric) {
			t.Fatalf("%q: expected ErrNotNumeric got %v", raw, err)
		}
	}
}
