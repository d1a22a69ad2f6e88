package domain

import "cloud.google.com/go/civil"

type MetricKind string

const (
	MetricPercentage MetricKind = "Percentage"
	MetricNumerical  MetricKind = "Numerical"
	MetricYesNo      MetricKind = "YesNo"
)

func (m MetricKind) Valid() bool {
	switch m {
	case MetricPercentage, MetricNumerical, MetricYesNo:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusOffTrack  Status = "OffTrack"
	StatusAtRisk    Status = "AtRisk"
	StatusOnTrack   Status = "OnTrack"
	StatusCompleted Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOffTrack, StatusAtRisk, StatusOnTrack, StatusCompleted:
		return true
	default:
		return false
	}
}

type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	default:
		return false
	}
}

type KeyResult struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	ObjectiveID  string     `json:"objective_id"`
	Metric       MetricKind `json:"metric"`
	StartValue   float64    `json:"start_value"`
	TargetValue  float64    `json:"target_value"`
	CurrentValue float64    `json:"current_value"`
	Progress     int        `json:"progress"`
	OwnerID      string     `json:"owner_id"`
	Status       Status     `json:"status"`
	Confidence   Confidence `json:"confidence"`
}

type Objective struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	DepartmentID string      `json:"department_id"`
	KeyResults   []KeyResult `json:"key_results"`
	Progress     int         `json:"progress"`
	Cycle        string      `json:"cycle"`
	StartDate    civil.Date  `json:"start_date"`
	EndDate      civil.Date  `json:"end_date"`
	OwnerID      string      `json:"owner_id"`
}

type CompanyKeyResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type CompanyObjective struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	KeyResults []CompanyKeyResult `json:"key_results"`
}

type Department struct {
	ID    string
	Name  string
	Color string
}

type User struct {
	ID           string
	Name         string
	Role         string
	DepartmentID string
}

// CycleWindow is the single company-wide OKR cycle every department is scored against.
type CycleWindow struct {
	Cycle             string      `json:"cycle"`
	StartDate         civil.Date  `json:"start_date"`
	EndDate           civil.Date  `json:"end_date"`
	ManualCurrentDate *civil.Date `json:"manual_current_date,omitempty"`
}

type DepartmentStats struct {
	DaysRemaining   int     `json:"days_remaining"`
	TotalDays       int     `json:"total_days"`
	TimeProgress    float64 `json:"time_progress"`
	OverallProgress int     `json:"overall_progress"`
}

// TimelineEntry places one key result on the calendar as [StartDate, EndDate).
// ObjectiveID is a cached locator and may be repaired on load.
type TimelineEntry struct {
	KeyResultID string     `json:"key_result_id"`
	ObjectiveID string     `json:"objective_id"`
	StartDate   civil.Date `json:"start_date"`
	EndDate     civil.Date `json:"end_date"`
}

func (e TimelineEntry) Days() int {
	return e.EndDate.DaysSince(e.StartDate)
}

type KeyResultRef struct {
	DepartmentID string
	ObjectiveID  string
	KeyResult    KeyResult
}

type ViewMode string

const (
	ViewDay     ViewMode = "day"
	ViewWeek    ViewMode = "week"
	ViewMonth   ViewMode = "month"
	ViewQuarter ViewMode = "quarter"
)

func (v ViewMode) Valid() bool {
	switch v {
	case ViewDay, ViewWeek, ViewMonth, ViewQuarter:
		return true
	default:
		return false
	}
}

type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)
