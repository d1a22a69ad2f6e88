package service

import (
	"context"
	"strings"

	"okrdash/internal/domain"

	"cloud.google.com/go/civil"
)

// UpdateGlobalDates moves the shared cycle window and stamps it onto every objective.
func (s *Service) UpdateGlobalDates(ctx context.Context, start, end civil.Date) error {
	if !start.IsValid() || !end.IsValid() || end.Before(start) {
		return ErrInvalidWindow
	}
	s.mu.Lock()
	s.window.StartDate = start
	s.window.EndDate = end
	s.cascadeWindowLocked()
	s.recalculateAllLocked()
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventWindowChanged},
		Event{Kind: EventObjectivesChanged},
		Event{Kind: EventStatsChanged})
	return nil
}

// UpdateCycle relabels the cycle. Stats do not depend on the label.
func (s *Service) UpdateCycle(ctx context.Context, label string) error {
	s.mu.Lock()
	s.window.Cycle = strings.TrimSpace(label)
	s.cascadeWindowLocked()
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventWindowChanged},
		Event{Kind: EventObjectivesChanged})
	return nil
}

// SetManualCurrentDate overrides "today" for all time accounting; nil restores the clock.
func (s *Service) SetManualCurrentDate(ctx context.Context, date *civil.Date) error {
	if date != nil && !date.IsValid() {
		return ErrInvalidValue
	}
	s.mu.Lock()
	if date == nil {
		s.window.ManualCurrentDate = nil
	} else {
		manual := *date
		s.window.ManualCurrentDate = &manual
	}
	s.recalculateAllLocked()
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventWindowChanged},
		Event{Kind: EventStatsChanged})
	return nil
}

func (s *Service) cascadeWindowLocked() {
	for dept, list := range s.objectives {
		updated := make([]domain.Objective, len(list))
		for i, objective := range list {
			objective.Cycle = s.window.Cycle
			objective.StartDate = s.window.StartDate
			objective.EndDate = s.window.EndDate
			updated[i] = objective
		}
		s.objectives[dept] = updated
	}
}
