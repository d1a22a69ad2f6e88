package cycle

import (
	"math"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

var (
	q1Start = civil.Date{Year: 2025, Month: time.January, Day: 1}
	q1End   = civil.Date{Year: 2025, Month: time.March, Day: 31}
)

func TestTotalDays(t *testing.T) {
	if got := TotalDays(q1Start, q1End); got != 90 {
		t.Fatalf("expected 90 got %d", got)
	}
	if got := TotalDays(q1Start, q1Start); got != 1 {
		t.Fatalf("expected 1 got %d", got)
	}
}

func TestTimeProgressBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		now    time.Time
		expect float64
	}{
		{name: "before start", now: time.Date(2024, time.December, 31, 12, 0, 0, 0, time.UTC), expect: 0},
		{name: "at start", now: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), expect: 0},
		{name: "after 45 days", now: time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC), expect: 50},
		{name: "past end", now: time.Date(2025, time.April, 1, 0, 1, 0, 0, time.UTC), expect: 100},
		{name: "end boundary", now: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), expect: 100},
	}
	for _, tc := range cases {
		if got := TimeProgress(q1Start, q1End, tc.now); math.Abs(got-tc.expect) > 0.001 {
			t.Fatalf("%s: expected %.3f got %.3f", tc.name, tc.expect, got)
		}
	}
}

func TestDaysRemaining(t *testing.T) {
	cases := []struct {
		name   string
		now    time.Time
		expect int
	}{
		{name: "at start", now: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), expect: 90},
		{name: "last morning", now: time.Date(2025, time.March, 31, 8, 0, 0, 0, time.UTC), expect: 1},
		{name: "past end", now: time.Date(2025, time.April, 1, 0, 1, 0, 0, time.UTC), expect: 0},
		{name: "long past", now: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), expect: 0},
	}
	for _, tc := range cases {
		if got := DaysRemaining(q1End, tc.now); got != tc.expect {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.expect, got)
		}
	}
}

func TestRemainingAndProgressAgree(t *testing.T) {
	total := TotalDays(q1Start, q1End)
	for offset := 0; offset < total; offset++ {
		now := q1Start.AddDays(offset).In(time.UTC)
		remaining := DaysRemaining(q1End, now)
		elapsed := TimeProgress(q1Start, q1End, now) / 100 * float64(total)
		if math.Abs(float64(remaining)+elapsed-float64(total)) > 0.001 {
			t.Fatalf("day %d: remaining %d + elapsed %.3f != %d", offset, remaining, elapsed, total)
		}
	}
}

func TestQuarterWindow(t *testing.T) {
	label, start, end := QuarterWindow(time.Date(2025, time.May, 20, 10, 0, 0, 0, time.UTC))
	if label != "Q2 2025" {
		t.Fatalf("expected Q2 2025 got %s", label)
	}
	if start != (civil.Date{Year: 2025, Month: time.April, Day: 1}) || end != (civil.Date{Year: 2025, Month: time.June, Day: 30}) {
		t.Fatalf("unexpected window %s..%s", start, end)
	}
}

func TestCurrentUsesManualDate(t *testing.T) {
	clock := Fixed(time.Date(2025, time.June, 1, 15, 30, 0, 0, time.UTC))
	manual := civil.Date{Year: 2025, Month: time.February, Day: 10}
	if got := Current(clock, &manual); !got.Equal(time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected manual midnight got %s", got)
	}
	if got := Current(clock, nil); !got.Equal(clock.Now()) {
		t.Fatalf("expected clock time got %s", got)
	}
}
