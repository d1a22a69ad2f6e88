package store

import (
	"context"
	"sync"
)

// Feed fans changes out to watchers. Publish never blocks: every watcher owns an
// unbounded queue drained by its own goroutine.
type Feed struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

type watcher struct {
	keys   map[string]struct{}
	out    chan Change
	signal chan struct{}

	mu    sync.Mutex
	queue []Change
}

func (f *Feed) Subscribe(ctx context.Context, keys []string) <-chan Change {
	w := &watcher{
		keys:   KeySet(keys),
		out:    make(chan Change),
		signal: make(chan struct{}, 1),
	}
	f.mu.Lock()
	if f.watchers == nil {
		f.watchers = make(map[*watcher]struct{})
	}
	f.watchers[w] = struct{}{}
	f.mu.Unlock()

	go func() {
		defer close(w.out)
		defer f.remove(w)
		w.run(ctx)
	}()
	return w.out
}

func (f *Feed) Publish(change Change) {
	f.mu.Lock()
	targets := make([]*watcher, 0, len(f.watchers))
	for w := range f.watchers {
		if Matches(w.keys, change.Key) {
			targets = append(targets, w)
		}
	}
	f.mu.Unlock()

	for _, w := range targets {
		w.push(change)
	}
}

func (f *Feed) remove(w *watcher) {
	f.mu.Lock()
	delete(f.watchers, w)
	f.mu.Unlock()
}

func (w *watcher) push(change Change) {
	w.mu.Lock()
	w.queue = append(w.queue, change)
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) run(ctx context.Context) {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-w.signal:
				continue
			}
		}
		next := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		select {
		case w.out <- next:
		case <-ctx.Done():
			return
		}
	}
}

// KeySet builds a lookup set; nil means "every key".
func KeySet(keys []string) map[string]struct{} {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

func Matches(set map[string]struct{}, key string) bool {
	if set == nil {
		return true
	}
	_, ok := set[key]
	return ok
}
