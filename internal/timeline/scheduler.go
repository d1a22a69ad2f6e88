// Package timeline schedules key results as date intervals on a calendar. Each key
// result holds at most one interval; entries only reference key results weakly
// and are pruned or repaired when the referenced key result moves or disappears.
package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"okrdash/internal/domain"
	"okrdash/internal/service"
	"okrdash/internal/store"

	"cloud.google.com/go/civil"
)

var (
	ErrAlreadyScheduled = errors.New("key result is already on the timeline")
	ErrNotScheduled     = errors.New("key result is not on the timeline")
	ErrUnknownKeyResult = errors.New("key result does not exist")
	ErrResizeInProgress = errors.New("key result is already being resized")
	ErrInvalidEdge      = errors.New("edge must be start or end")
	ErrInvalidView      = errors.New("unknown view mode")
	ErrInvalidDate      = errors.New("invalid date")
	ErrSessionClosed    = errors.New("resize session has ended")
)

// KeyResults is the read side of the OKR state the scheduler resolves against.
type KeyResults interface {
	KeyResult(objectiveID, keyResultID string) (domain.KeyResult, error)
	FindKeyResult(keyResultID string) (domain.KeyResultRef, bool)
}

type EventSource interface {
	Subscribe(fn func(service.Event)) func()
}

// DefaultDuration is the length in days of a freshly placed entry.
func DefaultDuration(view domain.ViewMode) int {
	switch view {
	case domain.ViewDay:
		return 1
	case domain.ViewWeek:
		return 7
	default:
		return 14
	}
}

type Scheduler struct {
	kv     store.KV
	okrs   KeyResults
	logger *slog.Logger

	pending   store.Pending
	persistMu sync.Mutex

	mu       sync.Mutex
	entries  map[string]domain.TimelineEntry
	selected string
	resizing map[string]*ResizeSession
	onRemove []func(keyResultID string)
}

func New(kv store.KV, okrs KeyResults, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		kv:       kv,
		okrs:     okrs,
		logger:   logger,
		entries:  make(map[string]domain.TimelineEntry),
		resizing: make(map[string]*ResizeSession),
	}
}

// OnRemove registers fn to run after an entry leaves the timeline for any reason.
func (s *Scheduler) OnRemove(fn func(keyResultID string)) {
	s.mu.Lock()
	s.onRemove = append(s.onRemove, fn)
	s.mu.Unlock()
}

func (s *Scheduler) Entry(keyResultID string) (domain.TimelineEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[keyResultID]
	return entry, ok
}

// Entries are ordered by start date, then key result id.
func (s *Scheduler) Entries() []domain.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Scheduler) sortedLocked() []domain.TimelineEntry {
	out := make([]domain.TimelineEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sortEntries(out)
	return out
}

func sortEntries(out []domain.TimelineEntry) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].KeyResultID < out[j].KeyResultID
	})
}

// persistedLocked is the sorted snapshot written to the kv store. Entries under an
// open resize session are written as they were when the session began.
func (s *Scheduler) persistedLocked() []domain.TimelineEntry {
	out := make([]domain.TimelineEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if session, ok := s.resizing[entry.KeyResultID]; ok {
			entry = session.original
		}
		out = append(out, entry)
	}
	sortEntries(out)
	return out
}

// Session returns the open resize session for a key result, if any.
func (s *Scheduler) Session(keyResultID string) (*ResizeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.resizing[keyResultID]
	return session, ok
}

func (s *Scheduler) Select(keyResultID string) {
	s.mu.Lock()
	s.selected = keyResultID
	s.mu.Unlock()
}

func (s *Scheduler) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Place schedules a key result from date for the view's default duration. A key
// result that is already scheduled keeps its entry and ErrAlreadyScheduled is returned.
func (s *Scheduler) Place(ctx context.Context, objectiveID, keyResultID string, date civil.Date, view domain.ViewMode) (domain.TimelineEntry, error) {
	if !view.Valid() {
		return domain.TimelineEntry{}, ErrInvalidView
	}
	if !date.IsValid() {
		return domain.TimelineEntry{}, ErrInvalidDate
	}
	if _, err := s.okrs.KeyResult(objectiveID, keyResultID); err != nil {
		ref, ok := s.okrs.FindKeyResult(keyResultID)
		if !ok {
			return domain.TimelineEntry{}, ErrUnknownKeyResult
		}
		objectiveID = ref.ObjectiveID
	}

	s.mu.Lock()
	if existing, ok := s.entries[keyResultID]; ok {
		s.mu.Unlock()
		return existing, ErrAlreadyScheduled
	}
	entry := domain.TimelineEntry{
		KeyResultID: keyResultID,
		ObjectiveID: objectiveID,
		StartDate:   date,
		EndDate:     date.AddDays(DefaultDuration(view)),
	}
	s.entries[keyResultID] = entry
	s.commit(ctx, nil)
	return entry, nil
}

func (s *Scheduler) PlaceAt(ctx context.Context, objectiveID, keyResultID string, axis Axis, x float64) (domain.TimelineEntry, error) {
	return s.Place(ctx, objectiveID, keyResultID, axis.DateAt(x), axis.View)
}

// Resize moves one edge to date when the entry keeps start < end; otherwise the
// entry is returned unchanged.
func (s *Scheduler) Resize(ctx context.Context, keyResultID string, edge domain.Edge, date civil.Date) (domain.TimelineEntry, error) {
	if edge != domain.EdgeStart && edge != domain.EdgeEnd {
		return domain.TimelineEntry{}, ErrInvalidEdge
	}
	s.mu.Lock()
	entry, ok := s.entries[keyResultID]
	if !ok {
		s.mu.Unlock()
		return domain.TimelineEntry{}, ErrNotScheduled
	}
	if _, busy := s.resizing[keyResultID]; busy {
		s.mu.Unlock()
		return entry, ErrResizeInProgress
	}
	resized, changed := resizeEdge(entry, edge, date)
	if !changed {
		s.mu.Unlock()
		return entry, nil
	}
	s.entries[keyResultID] = resized
	s.commit(ctx, nil)
	return resized, nil
}

func resizeEdge(entry domain.TimelineEntry, edge domain.Edge, date civil.Date) (domain.TimelineEntry, bool) {
	switch edge {
	case domain.EdgeStart:
		if !date.Before(entry.EndDate) || date == entry.StartDate {
			return entry, false
		}
		entry.StartDate = date
	case domain.EdgeEnd:
		if !date.After(entry.StartDate) || date == entry.EndDate {
			return entry, false
		}
		entry.EndDate = date
	}
	return entry, true
}

// Move shifts both edges so the entry starts at start, keeping its length.
func (s *Scheduler) Move(ctx context.Context, keyResultID string, start civil.Date) (domain.TimelineEntry, error) {
	if !start.IsValid() {
		return domain.TimelineEntry{}, ErrInvalidDate
	}
	s.mu.Lock()
	entry, ok := s.entries[keyResultID]
	if !ok {
		s.mu.Unlock()
		return domain.TimelineEntry{}, ErrNotScheduled
	}
	if _, busy := s.resizing[keyResultID]; busy {
		s.mu.Unlock()
		return entry, ErrResizeInProgress
	}
	delta := start.DaysSince(entry.StartDate)
	if delta == 0 {
		s.mu.Unlock()
		return entry, nil
	}
	entry.StartDate = entry.StartDate.AddDays(delta)
	entry.EndDate = entry.EndDate.AddDays(delta)
	s.entries[keyResultID] = entry
	s.commit(ctx, nil)
	return entry, nil
}

// Remove unschedules a key result, clears it from the selection and notifies
// OnRemove hooks.
func (s *Scheduler) Remove(ctx context.Context, keyResultID string) error {
	s.mu.Lock()
	if _, ok := s.entries[keyResultID]; !ok {
		s.mu.Unlock()
		return ErrNotScheduled
	}
	s.dropLocked(keyResultID)
	s.commit(ctx, []string{keyResultID})
	return nil
}

func (s *Scheduler) dropLocked(keyResultID string) {
	delete(s.entries, keyResultID)
	if s.selected == keyResultID {
		s.selected = ""
	}
	if session, ok := s.resizing[keyResultID]; ok {
		session.closed = true
		delete(s.resizing, keyResultID)
	}
}

// Prune repairs entries whose objective reference went stale and drops entries
// whose key result no longer exists anywhere.
func (s *Scheduler) Prune(ctx context.Context) int {
	s.mu.Lock()
	entries := s.sortedLocked()
	s.mu.Unlock()

	// resolve outside the lock; the OKR side has its own
	repaired := make(map[string]string)
	var orphaned []string
	for _, entry := range entries {
		if _, err := s.okrs.KeyResult(entry.ObjectiveID, entry.KeyResultID); err == nil {
			continue
		}
		if ref, ok := s.okrs.FindKeyResult(entry.KeyResultID); ok {
			repaired[entry.KeyResultID] = ref.ObjectiveID
			continue
		}
		orphaned = append(orphaned, entry.KeyResultID)
	}
	if len(repaired) == 0 && len(orphaned) == 0 {
		return 0
	}

	s.mu.Lock()
	for id, objectiveID := range repaired {
		if entry, ok := s.entries[id]; ok {
			entry.ObjectiveID = objectiveID
			s.entries[id] = entry
		}
		if session, ok := s.resizing[id]; ok {
			session.original.ObjectiveID = objectiveID
		}
	}
	removed := make([]string, 0, len(orphaned))
	for _, id := range orphaned {
		if _, ok := s.entries[id]; ok {
			s.dropLocked(id)
			removed = append(removed, id)
		}
	}
	s.commit(ctx, removed)
	if len(removed) > 0 || len(repaired) > 0 {
		s.logger.Info("timeline pruned", slog.Int("removed", len(removed)), slog.Int("repaired", len(repaired)))
	}
	return len(removed)
}

// commit must be called with s.mu held and releases it.
func (s *Scheduler) commit(ctx context.Context, removed []string) {
	raw, err := json.Marshal(s.persistedLocked())
	hooks := append([]func(string){}, s.onRemove...)
	s.persistMu.Lock()
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("encode timeline", slog.String("error", err.Error()))
	} else {
		s.persist(ctx, string(raw))
	}
	s.persistMu.Unlock()
	for _, id := range removed {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

func (s *Scheduler) persist(ctx context.Context, value string) {
	if current, err := s.kv.Get(ctx, store.KeyTimelineEntries); err == nil && current == value {
		return
	}
	s.pending.Add(store.KeyTimelineEntries, value)
	if err := s.kv.Set(ctx, store.KeyTimelineEntries, value); err != nil {
		s.logger.Error("persist timeline", slog.String("key", store.KeyTimelineEntries), slog.String("error", err.Error()))
	}
}

// decodeEntries parses a persisted timeline. Duplicates keep the first entry and
// entries that are not a valid start < end interval are dropped.
func (s *Scheduler) decodeEntries(raw string) (map[string]domain.TimelineEntry, error) {
	var list []domain.TimelineEntry
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	entries := make(map[string]domain.TimelineEntry, len(list))
	for _, entry := range list {
		if entry.KeyResultID == "" || !entry.StartDate.IsValid() || !entry.EndDate.IsValid() || !entry.StartDate.Before(entry.EndDate) {
			s.logger.Warn("dropping invalid timeline entry", slog.String("key_result_id", entry.KeyResultID))
			continue
		}
		if _, dup := entries[entry.KeyResultID]; dup {
			s.logger.Warn("dropping duplicate timeline entry", slog.String("key_result_id", entry.KeyResultID))
			continue
		}
		entries[entry.KeyResultID] = entry
	}
	return entries, nil
}

// Load hydrates entries from the kv store and prunes orphans. A missing or
// malformed value leaves the timeline empty.
func (s *Scheduler) Load(ctx context.Context) {
	entries := make(map[string]domain.TimelineEntry)
	raw, err := s.kv.Get(ctx, store.KeyTimelineEntries)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		s.logger.Warn("read persisted state", slog.String("key", store.KeyTimelineEntries), slog.String("error", err.Error()))
	default:
		decoded, err := s.decodeEntries(raw)
		if err != nil {
			s.logger.Warn("malformed persisted state", slog.String("key", store.KeyTimelineEntries), slog.String("error", err.Error()))
		} else {
			entries = decoded
		}
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	s.Prune(ctx)
}

// Start follows external writes to the timeline key until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	changes, err := s.kv.Watch(ctx, store.KeyTimelineEntries)
	if err != nil {
		return fmt.Errorf("watch timeline: %w", err)
	}
	go func() {
		for change := range changes {
			if s.pending.Own(change) {
				continue
			}
			s.apply(ctx, change)
		}
	}()
	return nil
}

func (s *Scheduler) apply(ctx context.Context, change store.Change) {
	entries := make(map[string]domain.TimelineEntry)
	if !change.Deleted {
		decoded, err := s.decodeEntries(change.Value)
		if err != nil {
			s.logger.Warn("malformed persisted state", slog.String("key", change.Key), slog.String("error", err.Error()))
			return
		}
		entries = decoded
	}

	s.mu.Lock()
	var removed []string
	for id := range s.entries {
		if _, ok := entries[id]; !ok {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		s.dropLocked(id)
	}
	// an external write replaces the state every open drag started from
	for id, session := range s.resizing {
		session.closed = true
		delete(s.resizing, id)
	}
	s.entries = entries
	hooks := append([]func(string){}, s.onRemove...)
	s.mu.Unlock()

	for _, id := range removed {
		for _, fn := range hooks {
			fn(id)
		}
	}
	s.Prune(ctx)
}

// Follow prunes the timeline whenever the OKR side removes or replaces key results.
func (s *Scheduler) Follow(src EventSource) func() {
	return src.Subscribe(func(e service.Event) {
		switch e.Kind {
		case service.EventKeyResultRemoved, service.EventObjectiveRemoved,
			service.EventObjectivesChanged, service.EventExternalReload:
			s.Prune(context.Background())
		}
	})
}
