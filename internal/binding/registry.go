package binding

import (
	"sync"
	"sync/atomic"
)

// Registry owns the ordered binding collection.
//
// Readers load an immutable snapshot and never take a lock; writers serialize
// on mu, build a new slice and swap it in. Snapshots must not be modified.
type Registry struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]Binding]
}

func NewRegistry() *Registry {
	r := &Registry{}
	empty := []Binding{}
	r.snapshot.Store(&empty)
	return r
}

// Snapshot returns the current bindings in iteration order.
func (r *Registry) Snapshot() []Binding {
	return *r.snapshot.Load()
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	return len(r.Snapshot())
}

// Get returns a copy of the binding with id.
func (r *Registry) Get(id string) (Binding, bool) {
	for _, b := range r.Snapshot() {
		if b.ID == id {
			return b.Clone(), true
		}
	}
	return Binding{}, false
}

// Upsert inserts b, or replaces the binding with the same id in place.
// It reports whether an existing binding was replaced.
func (r *Registry) Upsert(b Binding) bool {
	b = b.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	next := make([]Binding, len(cur), len(cur)+1)
	copy(next, cur)
	for i := range next {
		if next[i].ID == b.ID {
			next[i] = b
			r.snapshot.Store(&next)
			return true
		}
	}
	next = append(next, b)
	r.snapshot.Store(&next)
	return false
}

// Remove deletes the binding with id and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	next := make([]Binding, 0, len(cur))
	for _, b := range cur {
		if b.ID != id {
			next = append(next, b)
		}
	}
	if len(next) == len(cur) {
		return false
	}
	r.snapshot.Store(&next)
	return true
}

// Toggle sets the enabled flag of the binding with id.
func (r *Registry) Toggle(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.Snapshot()
	for i := range cur {
		if cur[i].ID != id {
			continue
		}
		next := make([]Binding, len(cur))
		copy(next, cur)
		next[i].Enabled = enabled
		r.snapshot.Store(&next)
		return true
	}
	return false
}

// Replace swaps the whole collection, e.g. after loading a document.
func (r *Registry) Replace(bindings []Binding) {
	next := make([]Binding, len(bindings))
	for i, b := range bindings {
		next[i] = b.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot.Store(&next)
}

// Clear removes every binding.
func (r *Registry) Clear() {
	r.Replace(nil)
}
