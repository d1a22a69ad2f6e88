package service

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"okrdash/internal/cycle"
	"okrdash/internal/domain"
	"okrdash/internal/okr"
	"okrdash/internal/store"
)

func (s *Service) computeStatsLocked(departmentID string, now time.Time) domain.DepartmentStats {
	w := s.window
	return domain.DepartmentStats{
		DaysRemaining:   cycle.DaysRemaining(w.EndDate, now),
		TotalDays:       cycle.TotalDays(w.StartDate, w.EndDate),
		TimeProgress:    cycle.TimeProgress(w.StartDate, w.EndDate, now),
		OverallProgress: okr.DepartmentProgress(s.objectives[departmentID]),
	}
}

func (s *Service) recalculateLocked(departmentID string) {
	if s.stats == nil {
		s.stats = make(map[string]domain.DepartmentStats)
	}
	s.stats[departmentID] = s.computeStatsLocked(departmentID, s.nowLocked())
}

func (s *Service) recalculateAllLocked() {
	now := s.nowLocked()
	stats := make(map[string]domain.DepartmentStats)
	for _, dept := range s.departmentsLocked() {
		stats[dept] = s.computeStatsLocked(dept, now)
	}
	s.stats = stats
}

// RecalculateStats recomputes one department's stats. Only a changed result is persisted.
func (s *Service) RecalculateStats(ctx context.Context, departmentID string) domain.DepartmentStats {
	s.mu.Lock()
	before, had := s.stats[departmentID]
	s.recalculateLocked(departmentID)
	after := s.stats[departmentID]
	if had && before == after {
		s.mu.Unlock()
		return after
	}
	s.commit(ctx, s.statsWritesLocked(), Event{Kind: EventStatsChanged, DepartmentID: departmentID})
	return after
}

func (s *Service) RecalculateAllStats(ctx context.Context) map[string]domain.DepartmentStats {
	s.mu.Lock()
	before := s.stats
	s.recalculateAllLocked()
	after := maps.Clone(s.stats)
	if maps.Equal(before, s.stats) {
		s.mu.Unlock()
		return after
	}
	s.commit(ctx, s.statsWritesLocked(), Event{Kind: EventStatsChanged})
	return after
}

// RunRefresh recomputes every department's stats on each tick so day counts follow
// the clock without user action. It returns when ctx is done.
func (s *Service) RunRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RecalculateAllStats(ctx)
			s.logger.Debug("stats refreshed", slog.String("key", store.KeyDepartmentStats))
		}
	}
}
