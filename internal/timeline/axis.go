package timeline

import (
	"math"
	"time"

	"okrdash/internal/domain"

	"cloud.google.com/go/civil"
)

const (
	MinZoom = 0.25
	MaxZoom = 4
)

var baseDayWidth = map[domain.ViewMode]float64{
	domain.ViewDay:     120,
	domain.ViewWeek:    40,
	domain.ViewMonth:   32,
	domain.ViewQuarter: 12,
}

// Axis maps calendar dates to horizontal positions for one view. Position 0 is
// the left edge of the first visible date.
type Axis struct {
	View  domain.ViewMode
	Start civil.Date
	Zoom  float64
	days  int
}

type Placement struct {
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// NewAxis builds the axis for view anchored at viewStart. An unknown view falls
// back to the week view and zoom is clamped to [MinZoom, MaxZoom].
func NewAxis(view domain.ViewMode, viewStart civil.Date, zoom float64) Axis {
	if !view.Valid() {
		view = domain.ViewWeek
	}
	if math.IsNaN(zoom) || zoom <= 0 {
		zoom = 1
	}
	zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))
	return Axis{View: view, Start: viewStart, Zoom: zoom, days: span(view, viewStart)}
}

func span(view domain.ViewMode, start civil.Date) int {
	switch view {
	case domain.ViewDay:
		return 7
	case domain.ViewMonth:
		first := civil.Date{Year: start.Year, Month: start.Month, Day: 1}
		return first.AddMonths(1).DaysSince(first)
	case domain.ViewQuarter:
		first := AlignViewStart(domain.ViewQuarter, start)
		return first.AddMonths(3).DaysSince(first)
	default:
		return 28
	}
}

func (a Axis) Days() int {
	return a.days
}

func (a Axis) Dates() []civil.Date {
	dates := make([]civil.Date, a.days)
	for i := range dates {
		dates[i] = a.Start.AddDays(i)
	}
	return dates
}

func (a Axis) DayWidth() float64 {
	base, ok := baseDayWidth[a.View]
	if !ok {
		base = baseDayWidth[domain.ViewWeek]
	}
	zoom := a.Zoom
	if math.IsNaN(zoom) || zoom <= 0 {
		zoom = 1
	}
	return base * zoom
}

// DateAt is the date under position x.
func (a Axis) DateAt(x float64) civil.Date {
	return a.Start.AddDays(int(math.Floor(x / a.DayWidth())))
}

func (a Axis) IndexOf(date civil.Date) int {
	return date.DaysSince(a.Start)
}

func (a Axis) First() civil.Date {
	return a.Start
}

func (a Axis) Last() civil.Date {
	return a.Start.AddDays(a.days - 1)
}

// Visible reports whether any day of the entry falls inside the axis.
func (a Axis) Visible(entry domain.TimelineEntry) bool {
	return !entry.EndDate.Before(a.First()) && !entry.StartDate.After(a.Last())
}

func (a Axis) Placement(entry domain.TimelineEntry) Placement {
	start := a.IndexOf(entry.StartDate)
	end := a.IndexOf(entry.EndDate)
	return Placement{
		Left:  float64(start) * a.DayWidth(),
		Width: float64(end-start+1) * a.DayWidth(),
	}
}

// Next moves forward by one page: a week for the day and week views, a month or
// a quarter otherwise.
func (a Axis) Next() Axis {
	return a.step(1)
}

func (a Axis) Prev() Axis {
	return a.step(-1)
}

func (a Axis) step(dir int) Axis {
	var start civil.Date
	switch a.View {
	case domain.ViewDay, domain.ViewWeek:
		start = a.Start.AddDays(7 * dir)
	case domain.ViewMonth:
		start = AlignViewStart(domain.ViewMonth, a.Start).AddMonths(dir)
	default:
		start = AlignViewStart(domain.ViewQuarter, a.Start).AddMonths(3 * dir)
	}
	return NewAxis(a.View, start, a.Zoom)
}

// AlignViewStart snaps date to the natural first day of view: Monday for weeks,
// the 1st for months and the first day of the quarter for quarters.
func AlignViewStart(view domain.ViewMode, date civil.Date) civil.Date {
	switch view {
	case domain.ViewWeek:
		weekday := date.In(time.UTC).Weekday()
		offset := (int(weekday) + 6) % 7
		return date.AddDays(-offset)
	case domain.ViewMonth:
		return civil.Date{Year: date.Year, Month: date.Month, Day: 1}
	case domain.ViewQuarter:
		month := time.Month(((int(date.Month)-1)/3)*3 + 1)
		return civil.Date{Year: date.Year, Month: month, Day: 1}
	default:
		return date
	}
}
