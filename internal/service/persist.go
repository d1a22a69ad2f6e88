package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"okrdash/internal/domain"
	"okrdash/internal/store"

	"cloud.google.com/go/civil"
)

// Keys is every persisted key the service reads, writes or follows.
var Keys = []string{
	store.KeyObjectives,
	store.KeyDepartmentStats,
	store.KeyGlobalStartDate,
	store.KeyGlobalEndDate,
	store.KeyCycle,
	store.KeyManualCurrentDate,
	store.KeyCompanyObjectives,
}

type kvWrite struct {
	key    string
	value  string
	delete bool
}

// put encodes v for key; a value that cannot be encoded is logged and skipped.
func (s *Service) put(writes []kvWrite, key string, v any) []kvWrite {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode state", slog.String("key", key), slog.String("error", err.Error()))
		return writes
	}
	return append(writes, kvWrite{key: key, value: string(raw)})
}

func (s *Service) statsWritesLocked() []kvWrite {
	return s.put(nil, store.KeyDepartmentStats, s.stats)
}

// snapshotLocked is the full OKR state: objectives, stats, window and manual date.
func (s *Service) snapshotLocked() []kvWrite {
	writes := s.put(nil, store.KeyObjectives, s.objectives)
	writes = s.put(writes, store.KeyDepartmentStats, s.stats)
	writes = s.put(writes, store.KeyGlobalStartDate, s.window.StartDate)
	writes = s.put(writes, store.KeyGlobalEndDate, s.window.EndDate)
	writes = s.put(writes, store.KeyCycle, s.window.Cycle)
	if s.window.ManualCurrentDate == nil {
		return append(writes, kvWrite{key: store.KeyManualCurrentDate, delete: true})
	}
	return s.put(writes, store.KeyManualCurrentDate, *s.window.ManualCurrentDate)
}

func (s *Service) companyWritesLocked() []kvWrite {
	return s.put(nil, store.KeyCompanyObjectives, s.company)
}

// commit must be called with s.mu held and releases it. Writes are serialized in
// mutation order; subscribers hear about the change once it is persisted.
func (s *Service) commit(ctx context.Context, writes []kvWrite, events ...Event) {
	s.persistMu.Lock()
	s.mu.Unlock()
	s.persist(ctx, writes)
	s.persistMu.Unlock()
	s.emit(events...)
}

// persist logs failures instead of returning them; in-memory state stays authoritative.
// Writes that would not change the stored value are skipped, since not every
// backend reports them on its change feed.
func (s *Service) persist(ctx context.Context, writes []kvWrite) {
	for _, w := range writes {
		current, err := s.kv.Get(ctx, w.key)
		exists := err == nil
		if (w.delete && !exists) || (!w.delete && exists && current == w.value) {
			continue
		}
		if w.delete {
			s.pending.AddDelete(w.key)
			err = s.kv.Delete(ctx, w.key)
		} else {
			s.pending.Add(w.key, w.value)
			err = s.kv.Set(ctx, w.key, w.value)
		}
		if err != nil {
			s.logger.Error("persist state", slog.String("key", w.key), slog.String("error", err.Error()))
		}
	}
}

// read returns the raw value of key, or ok=false when it is absent or unreadable.
func (s *Service) read(ctx context.Context, key string) (string, bool) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("read persisted state", slog.String("key", key), slog.String("error", err.Error()))
		return "", false
	}
	return raw, true
}

func decode[T any](s *Service, key, raw string) (T, bool) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.logger.Warn("malformed persisted state", slog.String("key", key), slog.String("error", err.Error()))
		return v, false
	}
	return v, true
}

func decodeDate(s *Service, key, raw string) (civil.Date, bool) {
	date, ok := decode[civil.Date](s, key, raw)
	if ok && !date.IsValid() {
		s.logger.Warn("malformed persisted state", slog.String("key", key), slog.String("error", "invalid date"))
		return civil.Date{}, false
	}
	return date, ok
}

// Load hydrates state from the kv store. Absent or malformed keys fall back to the
// seed or the default window; the fallback is written back.
func (s *Service) Load(ctx context.Context) {
	defaulted := false

	window, ok := s.loadWindow(ctx)
	if !ok {
		window = s.defaultWindow()
		defaulted = true
	}
	if raw, ok := s.read(ctx, store.KeyManualCurrentDate); ok {
		if manual, ok := decodeDate(s, store.KeyManualCurrentDate, raw); ok {
			window.ManualCurrentDate = &manual
		}
	}

	var objectives map[string][]domain.Objective
	if raw, ok := s.read(ctx, store.KeyObjectives); ok {
		objectives, ok = decode[map[string][]domain.Objective](s, store.KeyObjectives, raw)
		if !ok {
			objectives = nil
		}
	}

	var company []domain.CompanyObjective
	companyDefaulted := false
	if raw, ok := s.read(ctx, store.KeyCompanyObjectives); ok {
		company, ok = decode[[]domain.CompanyObjective](s, store.KeyCompanyObjectives, raw)
		if !ok {
			company = nil
		}
	}
	if company == nil {
		company = s.seed.CompanyObjectives()
		companyDefaulted = true
	}

	s.mu.Lock()
	s.window = window
	if objectives == nil {
		s.objectives = s.seedObjectivesLocked()
		defaulted = true
	} else {
		s.objectives = s.normalizeAllLocked(objectives)
	}
	s.company = company
	s.recalculateAllLocked()

	writes := s.statsWritesLocked()
	if defaulted {
		writes = s.snapshotLocked()
	}
	if companyDefaulted {
		writes = append(writes, s.companyWritesLocked()...)
	}
	s.commit(ctx, writes,
		Event{Kind: EventWindowChanged},
		Event{Kind: EventObjectivesChanged},
		Event{Kind: EventStatsChanged},
		Event{Kind: EventCompanyChanged})
	s.logger.Info("state loaded", slog.Bool("defaulted", defaulted), slog.String("cycle", window.Cycle))
}

func (s *Service) loadWindow(ctx context.Context) (domain.CycleWindow, bool) {
	rawStart, okStart := s.read(ctx, store.KeyGlobalStartDate)
	rawEnd, okEnd := s.read(ctx, store.KeyGlobalEndDate)
	if !okStart || !okEnd {
		return domain.CycleWindow{}, false
	}
	start, okStart := decodeDate(s, store.KeyGlobalStartDate, rawStart)
	end, okEnd := decodeDate(s, store.KeyGlobalEndDate, rawEnd)
	if !okStart || !okEnd {
		return domain.CycleWindow{}, false
	}
	if end.Before(start) {
		s.logger.Warn("malformed persisted state", slog.String("key", store.KeyGlobalEndDate), slog.String("error", ErrInvalidWindow.Error()))
		return domain.CycleWindow{}, false
	}
	window := domain.CycleWindow{StartDate: start, EndDate: end}
	if raw, ok := s.read(ctx, store.KeyCycle); ok {
		if label, ok := decode[string](s, store.KeyCycle, raw); ok {
			window.Cycle = label
		}
	}
	return window, true
}

// Reseed discards the current state and persists the built-in seed.
func (s *Service) Reseed(ctx context.Context) {
	s.mu.Lock()
	s.window = s.defaultWindow()
	s.objectives = s.seedObjectivesLocked()
	s.company = s.seed.CompanyObjectives()
	s.recalculateAllLocked()
	writes := append(s.snapshotLocked(), s.companyWritesLocked()...)
	s.commit(ctx, writes,
		Event{Kind: EventWindowChanged},
		Event{Kind: EventObjectivesChanged},
		Event{Kind: EventStatsChanged},
		Event{Kind: EventCompanyChanged})
}

// Start follows writes made to the OKR keys by other processes until ctx is done.
// The watch is registered before Start returns; the service's own writes are skipped.
func (s *Service) Start(ctx context.Context) error {
	changes, err := s.kv.Watch(ctx, Keys...)
	if err != nil {
		return fmt.Errorf("watch okr keys: %w", err)
	}
	go func() {
		for change := range changes {
			if s.pending.Own(change) {
				continue
			}
			s.apply(change)
		}
	}()
	return nil
}

// apply adopts an external write, last write wins. It never persists.
func (s *Service) apply(change store.Change) {
	s.mu.Lock()
	events := []Event{{Kind: EventExternalReload, Key: change.Key}}
	switch change.Key {
	case store.KeyObjectives:
		if change.Deleted {
			s.mu.Unlock()
			return
		}
		objectives, ok := decode[map[string][]domain.Objective](s, change.Key, change.Value)
		if !ok {
			s.mu.Unlock()
			return
		}
		s.objectives = s.normalizeAllLocked(objectives)
		s.recalculateAllLocked()
		events = append(events, Event{Kind: EventObjectivesChanged}, Event{Kind: EventStatsChanged})
	case store.KeyGlobalStartDate, store.KeyGlobalEndDate:
		if change.Deleted {
			s.mu.Unlock()
			return
		}
		date, ok := decodeDate(s, change.Key, change.Value)
		if !ok {
			s.mu.Unlock()
			return
		}
		if change.Key == store.KeyGlobalStartDate {
			s.window.StartDate = date
		} else {
			s.window.EndDate = date
		}
		s.cascadeWindowLocked()
		s.recalculateAllLocked()
		events = append(events, Event{Kind: EventWindowChanged}, Event{Kind: EventObjectivesChanged}, Event{Kind: EventStatsChanged})
	case store.KeyCycle:
		if change.Deleted {
			s.mu.Unlock()
			return
		}
		label, ok := decode[string](s, change.Key, change.Value)
		if !ok {
			s.mu.Unlock()
			return
		}
		s.window.Cycle = label
		s.cascadeWindowLocked()
		events = append(events, Event{Kind: EventWindowChanged}, Event{Kind: EventObjectivesChanged})
	case store.KeyManualCurrentDate:
		if change.Deleted {
			s.window.ManualCurrentDate = nil
		} else {
			manual, ok := decodeDate(s, change.Key, change.Value)
			if !ok {
				s.mu.Unlock()
				return
			}
			s.window.ManualCurrentDate = &manual
		}
		s.recalculateAllLocked()
		events = append(events, Event{Kind: EventWindowChanged}, Event{Kind: EventStatsChanged})
	case store.KeyDepartmentStats:
		// stats are derived; recompute from local inputs instead of adopting them
		s.recalculateAllLocked()
		events = append(events, Event{Kind: EventStatsChanged})
	case store.KeyCompanyObjectives:
		if change.Deleted {
			s.mu.Unlock()
			return
		}
		company, ok := decode[[]domain.CompanyObjective](s, change.Key, change.Value)
		if !ok {
			s.mu.Unlock()
			return
		}
		s.company = company
		events = append(events, Event{Kind: EventCompanyChanged})
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.logger.Debug("external change applied", slog.String("key", change.Key))
	s.emit(events...)
}
