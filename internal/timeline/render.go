package timeline

import "okrdash/internal/domain"

// Bar is a visible entry joined with the key result it schedules.
type Bar struct {
	Entry        domain.TimelineEntry `json:"entry"`
	Placement    Placement            `json:"placement"`
	DepartmentID string               `json:"department_id"`
	Title        string               `json:"title"`
	Progress     int                  `json:"progress"`
	Status       domain.Status        `json:"status"`
	Selected     bool                 `json:"selected"`
}

// Render lays out the entries visible on axis. Entries outside the axis stay
// scheduled but are not returned, nor are entries whose key result is gone.
func (s *Scheduler) Render(axis Axis) []Bar {
	entries := s.Entries()
	selected, _ := s.Selected()
	bars := make([]Bar, 0, len(entries))
	for _, entry := range entries {
		if !axis.Visible(entry) {
			continue
		}
		ref, ok := s.okrs.FindKeyResult(entry.KeyResultID)
		if !ok {
			continue
		}
		bars = append(bars, Bar{
			Entry:        entry,
			Placement:    axis.Placement(entry),
			DepartmentID: ref.DepartmentID,
			Title:        ref.KeyResult.Title,
			Progress:     ref.KeyResult.Progress,
			Status:       ref.KeyResult.Status,
			Selected:     entry.KeyResultID == selected,
		})
	}
	return bars
}
