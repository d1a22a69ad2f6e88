package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Get(ctx, KeyCycle); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if err := m.Set(ctx, KeyCycle, `"Q3 2025"`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.Get(ctx, KeyCycle)
	if err != nil || got != `"Q3 2025"` {
		t.Fatalf("expected stored value got %q (%v)", got, err)
	}
	if err := m.Delete(ctx, KeyCycle); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, KeyCycle); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete got %v", err)
	}
}

func TestMemoryWatchFiltersKeysAndKeepsOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemory()
	changes, err := m.Watch(ctx, KeyObjectives)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	_ = m.Set(ctx, KeyCycle, "ignored")
	for _, value := range []string{"a", "b", "c"} {
		_ = m.Set(ctx, KeyObjectives, value)
	}
	_ = m.Delete(ctx, KeyObjectives)

	expect := []Change{
		{Key: KeyObjectives, Value: "a"},
		{Key: KeyObjectives, Value: "b"},
		{Key: KeyObjectives, Value: "c"},
		{Key: KeyObjectives, Deleted: true},
	}
	for i, want := range expect {
		got := nextChange(t, changes)
		if got != want {
			t.Fatalf("change %d: expected %+v got %+v", i, want, got)
		}
	}
}

func TestMemoryWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory()
	changes, _ := m.Watch(ctx)
	cancel()
	select {
	case _, ok := <-changes:
		if ok {
			t.Fatalf("expected closed feed")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("feed not closed after cancel")
	}
	// publishing after the watcher left must not block
	_ = m.Set(context.Background(), KeyCycle, "x")
}

func TestPendingRecognisesOwnWrites(t *testing.T) {
	var p Pending
	p.Add(KeyCycle, "a")
	p.Add(KeyCycle, "b")
	p.AddDelete(KeyManualCurrentDate)

	if p.Own(Change{Key: KeyCycle, Value: "z"}) {
		t.Fatalf("foreign value treated as own")
	}
	if !p.Own(Change{Key: KeyCycle, Value: "b"}) {
		t.Fatalf("expected own write b")
	}
	// a was superseded by b, so a late echo of a is no longer pending
	if p.Own(Change{Key: KeyCycle, Value: "a"}) {
		t.Fatalf("stale pending write not consumed")
	}
	if !p.Own(Change{Key: KeyManualCurrentDate, Deleted: true}) {
		t.Fatalf("expected own delete")
	}
}
