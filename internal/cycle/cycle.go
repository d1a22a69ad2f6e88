// Package cycle implements whole-day time accounting for the OKR cycle window.
//
// Every function takes "now" explicitly. Calendar dates are interpreted in now's
// location, so the caller picks the time zone by picking the clock.
package cycle

import (
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
)

const day = 24 * time.Hour

// TotalDays counts the days in [start, end] inclusively; start == end is 1 day.
func TotalDays(start, end civil.Date) int {
	return end.DaysSince(start) + 1
}

// DaysRemaining counts whole or partial days left until the end of the end date.
// It never goes negative.
func DaysRemaining(end civil.Date, now time.Time) int {
	remaining := EndOfDay(end, now.Location()).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(float64(remaining) / float64(day)))
}

// TimeProgress is the elapsed share of [start, end] as a percentage in [0,100].
func TimeProgress(start, end civil.Date, now time.Time) float64 {
	loc := now.Location()
	startAt := start.In(loc)
	if now.Before(startAt) {
		return 0
	}
	if !now.Before(end.AddDays(1).In(loc)) {
		return 100
	}
	total := TotalDays(start, end)
	if total <= 0 {
		return 0
	}
	elapsed := float64(now.Sub(startAt)) / float64(day)
	return math.Max(0, math.Min(100, elapsed/float64(total)*100))
}

// EndOfDay is the last millisecond of d.
func EndOfDay(d civil.Date, loc *time.Location) time.Time {
	return d.AddDays(1).In(loc).Add(-time.Millisecond)
}

// QuarterWindow returns the label and bounds of the calendar quarter containing now.
func QuarterWindow(now time.Time) (string, civil.Date, civil.Date) {
	year := now.Year()
	quarter := ((int(now.Month()) - 1) / 3) + 1
	startMonth := time.Month((quarter-1)*3 + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return fmt.Sprintf("Q%d %d", quarter, year), civil.DateOf(start), civil.DateOf(end)
}
