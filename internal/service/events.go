package service

import "github.com/google/uuid"

type EventKind string

const (
	EventObjectivesChanged EventKind = "objectives_changed"
	EventObjectiveRemoved  EventKind = "objective_removed"
	EventKeyResultRemoved  EventKind = "key_result_removed"
	EventWindowChanged     EventKind = "window_changed"
	EventStatsChanged      EventKind = "stats_changed"
	EventCompanyChanged    EventKind = "company_changed"
	EventExternalReload    EventKind = "external_reload"
)

// Event describes a settled state change. Only the fields relevant to Kind are set;
// Key is the persisted key for EventExternalReload.
type Event struct {
	Kind         EventKind
	DepartmentID string
	ObjectiveID  string
	KeyResultID  string
	Key          string
}

// Subscribe registers fn for every event until the returned func is called. fn
// runs on the goroutine that caused the change, after the state lock is released,
// so it may call back into the service.
func (s *Service) Subscribe(fn func(Event)) func() {
	id := uuid.New()
	s.subMu.Lock()
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, event := range events {
		for _, fn := range subs {
			fn(event)
		}
	}
}
