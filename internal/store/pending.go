package store

import "sync"

// Pending remembers values a component wrote itself, so the echo of its own
// writes on the change feed can be told apart from writes made elsewhere.
type Pending struct {
	mu     sync.Mutex
	values map[string][]string
}

func (p *Pending) Add(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values == nil {
		p.values = make(map[string][]string)
	}
	p.values[key] = append(p.values[key], value)
}

func (p *Pending) AddDelete(key string) {
	p.Add(key, "")
}

// Own reports whether change is the echo of a pending write and consumes it along
// with every older pending write to the same key.
func (p *Pending) Own(change Change) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	value := change.Value
	if change.Deleted {
		value = ""
	}
	queued := p.values[change.Key]
	for i, candidate := range queued {
		if candidate == value {
			p.values[change.Key] = queued[i+1:]
			return true
		}
	}
	return false
}
