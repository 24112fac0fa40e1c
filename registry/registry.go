// Package registry keeps built definitions addressable by name.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/reoring/ciri"
)

var (
	ErrUnknownSchema   = errors.New("registry: unknown schema")
	ErrDuplicateSchema = errors.New("registry: schema already registered")
)

// Registry maps names to definitions. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*ciri.Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: map[string]*ciri.Definition{}}
}

// Register adds def under its own name.
func (r *Registry) Register(def *ciri.Definition) error {
	if def == nil {
		return fmt.Errorf("registry: %w", ciri.ErrNotBuilt)
	}
	return r.RegisterAs(def.Name(), def)
}

// RegisterAs adds def under name. Registering a name twice is an error.
func (r *Registry) RegisterAs(name string, def *ciri.Definition) error {
	if def == nil {
		return fmt.Errorf("registry: %q: %w", name, ciri.ErrNotBuilt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.defs[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateSchema, name)
	}
	r.defs[name] = def
	return nil
}

// Lookup returns the definition registered as name.
func (r *Registry) Lookup(name string) (*ciri.Definition, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return def, nil
}

// MustLookup is like Lookup but panics when name is unknown.
func (r *Registry) MustLookup(name string) *ciri.Definition {
	def, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return def
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for k := range r.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
