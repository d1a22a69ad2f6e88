package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"okrdash/internal/cycle"
	"okrdash/internal/domain"
	"okrdash/internal/seed"
	"okrdash/internal/store"

	"github.com/google/uuid"
)

var (
	ErrObjectiveNotFound  = errors.New("objective not found")
	ErrKeyResultNotFound  = errors.New("key result not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrLastKeyResult      = errors.New("an objective must keep at least one key result")
	ErrInvalidValue       = errors.New("invalid value")
	ErrInvalidWindow      = errors.New("cycle end date is before its start date")
)

const DefaultRefreshInterval = 24 * time.Hour

type Options struct {
	Logger *slog.Logger
	Clock  cycle.Clock
	Seed   *seed.Data
}

// Service owns the objectives of every department, the shared cycle window and
// the derived department stats. Every mutation recomputes what it invalidates
// before returning, persists a snapshot and then notifies subscribers.
type Service struct {
	kv     store.KV
	logger *slog.Logger
	clock  cycle.Clock
	seed   *seed.Data

	pending   store.Pending
	persistMu sync.Mutex

	mu         sync.RWMutex
	objectives map[string][]domain.Objective
	stats      map[string]domain.DepartmentStats
	window     domain.CycleWindow
	company    []domain.CompanyObjective

	subMu sync.Mutex
	subs  map[uuid.UUID]func(Event)
}

// New builds a service holding the seed state. Call Load to hydrate from kv.
func New(kv store.KV, opts Options) (*Service, error) {
	if kv == nil {
		return nil, errors.New("kv store is required")
	}
	data := opts.Seed
	if data == nil {
		var err error
		data, err = seed.Default()
		if err != nil {
			return nil, fmt.Errorf("load default seed: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = cycle.SystemClock{Location: time.UTC}
	}
	s := &Service{
		kv:     kv,
		logger: logger,
		clock:  clock,
		seed:   data,
		subs:   make(map[uuid.UUID]func(Event)),
	}
	s.window = s.defaultWindow()
	s.objectives = s.seedObjectivesLocked()
	s.company = data.CompanyObjectives()
	s.recalculateAllLocked()
	return s, nil
}

func (s *Service) Directory() *seed.Directory {
	return s.seed.Directory()
}

func (s *Service) defaultWindow() domain.CycleWindow {
	label, start, end := cycle.QuarterWindow(s.clock.Now())
	return domain.CycleWindow{Cycle: label, StartDate: start, EndDate: end}
}

// Now is the instant time accounting runs against.
func (s *Service) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowLocked()
}

func (s *Service) nowLocked() time.Time {
	return cycle.Current(s.clock, s.window.ManualCurrentDate)
}

func (s *Service) Window() domain.CycleWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyWindow(s.window)
}

// Departments lists every department that has objectives or reference data,
// reference order first.
func (s *Service) Departments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.departmentsLocked()
}

func (s *Service) departmentsLocked() []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(s.objectives))
	for _, department := range s.seed.Directory().Departments() {
		seen[department.ID] = struct{}{}
		ids = append(ids, department.ID)
	}
	var extra []string
	for id := range s.objectives {
		if _, ok := seen[id]; !ok {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}

func (s *Service) knownDepartmentLocked(id string) bool {
	if _, ok := s.seed.Directory().DepartmentByID(id); ok {
		return true
	}
	_, ok := s.objectives[id]
	return ok
}

func (s *Service) Objectives(departmentID string) []domain.Objective {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyObjectives(s.objectives[departmentID])
}

func (s *Service) AllObjectives() map[string][]domain.Objective {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyObjectiveMap(s.objectives)
}

func (s *Service) Objective(id string) (domain.Objective, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, idx, ok := s.locateLocked(id)
	if !ok {
		return domain.Objective{}, ErrObjectiveNotFound
	}
	return copyObjective(s.objectives[dept][idx]), nil
}

func (s *Service) KeyResult(objectiveID, keyResultID string) (domain.KeyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dept, idx, ok := s.locateLocked(objectiveID)
	if !ok {
		return domain.KeyResult{}, ErrObjectiveNotFound
	}
	for _, kr := range s.objectives[dept][idx].KeyResults {
		if kr.ID == keyResultID {
			return kr, nil
		}
	}
	return domain.KeyResult{}, ErrKeyResultNotFound
}

// FindKeyResult scans every department for a key result id.
func (s *Service) FindKeyResult(keyResultID string) (domain.KeyResultRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, dept := range s.departmentsLocked() {
		for _, objective := range s.objectives[dept] {
			for _, kr := range objective.KeyResults {
				if kr.ID == keyResultID {
					return domain.KeyResultRef{DepartmentID: dept, ObjectiveID: objective.ID, KeyResult: kr}, true
				}
			}
		}
	}
	return domain.KeyResultRef{}, false
}

func (s *Service) Stats(departmentID string) (domain.DepartmentStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[departmentID]
	return stats, ok
}

func (s *Service) AllStats() map[string]domain.DepartmentStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.DepartmentStats, len(s.stats))
	for id, stats := range s.stats {
		out[id] = stats
	}
	return out
}

func (s *Service) locateLocked(objectiveID string) (string, int, bool) {
	for dept, list := range s.objectives {
		for i, objective := range list {
			if objective.ID == objectiveID {
				return dept, i, true
			}
		}
	}
	return "", 0, false
}

func copyWindow(w domain.CycleWindow) domain.CycleWindow {
	if w.ManualCurrentDate != nil {
		manual := *w.ManualCurrentDate
		w.ManualCurrentDate = &manual
	}
	return w
}

func copyObjective(o domain.Objective) domain.Objective {
	o.KeyResults = append([]domain.KeyResult(nil), o.KeyResults...)
	if o.KeyResults == nil {
		o.KeyResults = []domain.KeyResult{}
	}
	return o
}

func copyObjectives(list []domain.Objective) []domain.Objective {
	out := make([]domain.Objective, len(list))
	for i, objective := range list {
		out[i] = copyObjective(objective)
	}
	return out
}

func copyObjectiveMap(in map[string][]domain.Objective) map[string][]domain.Objective {
	out := make(map[string][]domain.Objective, len(in))
	for dept, list := range in {
		out[dept] = copyObjectives(list)
	}
	return out
}
