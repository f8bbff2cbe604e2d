package ansible

import (
	"sort"
	"sync"
)

// Registry accumulates discovered units by name. It is the single source
// of truth the graph builder resolves dependency names against.
//
// Collision policy: if two projects declare a unit with the same name, the
// later registration wins and a warning is emitted naming both projects.
// Registration order is deterministic for an unchanged population (the
// scanner serializes writes in enumeration order), so last-wins keeps the
// pipeline idempotent.
//
// Register and Lookup are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	units map[string]*Unit
	warn  func(format string, args ...any)
}

// NewRegistry creates an empty registry. warn receives collision warnings;
// pass nil to discard them.
func NewRegistry(warn func(format string, args ...any)) *Registry {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &Registry{
		units: make(map[string]*Unit),
		warn:  warn,
	}
}

// Register inserts a unit, overwriting any previous unit of the same name.
func (r *Registry) Register(u *Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.units[u.Name]; exists {
		r.warn("duplicate unit %q: %s overrides %s", u.Name, u.Origin.ProjectPath, prev.Origin.ProjectPath)
	}
	r.units[u.Name] = u
}

// Lookup returns the unit registered under name, if any.
func (r *Registry) Lookup(name string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[name]
	return u, ok
}

// Units returns all registered units sorted by name.
func (r *Registry) Units() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
