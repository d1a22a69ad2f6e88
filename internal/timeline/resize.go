package timeline

import (
	"context"
	"math"

	"okrdash/internal/domain"

	"cloud.google.com/go/civil"
)

// ResizeSession is one pointer drag on an entry edge. Drags change the entry in
// memory; End persists the result and Cancel restores the entry as it was.
type ResizeSession struct {
	s           *Scheduler
	keyResultID string
	edge        domain.Edge
	originX     float64
	dayWidth    float64
	anchor      civil.Date
	original    domain.TimelineEntry
	closed      bool
}

// BeginResize opens a session anchored at the edge's current date and the pointer
// position originX. Only one session per key result may be open.
func (s *Scheduler) BeginResize(keyResultID string, edge domain.Edge, originX float64, axis Axis) (*ResizeSession, error) {
	if edge != domain.EdgeStart && edge != domain.EdgeEnd {
		return nil, ErrInvalidEdge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[keyResultID]
	if !ok {
		return nil, ErrNotScheduled
	}
	if _, busy := s.resizing[keyResultID]; busy {
		return nil, ErrResizeInProgress
	}
	anchor := entry.StartDate
	if edge == domain.EdgeEnd {
		anchor = entry.EndDate
	}
	session := &ResizeSession{
		s:           s,
		keyResultID: keyResultID,
		edge:        edge,
		originX:     originX,
		dayWidth:    axis.DayWidth(),
		anchor:      anchor,
		original:    entry,
	}
	s.resizing[keyResultID] = session
	return session, nil
}

// Drag moves the edge to the anchor date shifted by the whole days between x and
// the origin. A step that would break start < end leaves the entry as it is.
func (r *ResizeSession) Drag(x float64) (domain.TimelineEntry, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.closed {
		return domain.TimelineEntry{}, ErrSessionClosed
	}
	entry, ok := s.entries[r.keyResultID]
	if !ok {
		return domain.TimelineEntry{}, ErrNotScheduled
	}
	delta := int(math.Round((x - r.originX) / r.dayWidth))
	resized, changed := resizeEdge(entry, r.edge, r.anchor.AddDays(delta))
	if changed {
		s.entries[r.keyResultID] = resized
	}
	return resized, nil
}

// End finalizes the session and persists the entry.
func (r *ResizeSession) End(ctx context.Context) (domain.TimelineEntry, error) {
	s := r.s
	s.mu.Lock()
	if r.closed {
		s.mu.Unlock()
		return domain.TimelineEntry{}, ErrSessionClosed
	}
	r.closed = true
	delete(s.resizing, r.keyResultID)
	entry, ok := s.entries[r.keyResultID]
	if !ok {
		s.mu.Unlock()
		return domain.TimelineEntry{}, ErrNotScheduled
	}
	s.commit(ctx, nil)
	return entry, nil
}

// Cancel restores the entry to its state when the session began.
func (r *ResizeSession) Cancel() {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	delete(s.resizing, r.keyResultID)
	if _, ok := s.entries[r.keyResultID]; ok {
		s.entries[r.keyResultID] = r.original
	}
}
