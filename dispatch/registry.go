package dispatch

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps fully-qualified handler group identifiers to their factories,
// and value type names to their constructors. It is populated at startup and
// then read concurrently by any number of mappers.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]Factory
	types  map[string]TypeConstructor
}

// NewRegistry creates a Registry holding the builtin value types.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]Factory),
		types:  builtinTypes(),
	}
}

// Register adds a handler group under its fully-qualified identifier, e.g.
// "API.Math" or "API.V1.Device.OwnCloud".
func (r *Registry) Register(id string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.groups[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGroup, id)
	}
	r.groups[id] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// RegisterType adds a value type that typed parameters may name.
func (r *Registry) RegisterType(name string, ctor TypeConstructor) error {
	if ctor == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.types[name] = ctor
	return nil
}

// MustRegisterType is like RegisterType but panics on error.
func (r *Registry) MustRegisterType(name string, ctor TypeConstructor) {
	if err := r.RegisterType(name, ctor); err != nil {
		panic(err)
	}
}

// Factory returns the factory registered under id.
func (r *Registry) Factory(id string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.groups[id]
	return f, ok
}

// Type returns the constructor of the named value type.
func (r *Registry) Type(name string) (TypeConstructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.types[name]
	return c, ok
}

// Groups returns the registered group identifiers, sorted.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.groups))
	for id := range r.groups {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// DefaultNamespace is the namespace of the default mapper.
const DefaultNamespace = "API"

// DefaultRegistry is the Registry used by Register, RegisterType and an
// Evaluator created without a Mapper.
var DefaultRegistry = NewRegistry()

// Register adds a handler group to DefaultRegistry and panics on collision.
func Register(id string, factory Factory) {
	DefaultRegistry.MustRegister(id, factory)
}

// RegisterType adds a value type to DefaultRegistry and panics on collision.
func RegisterType(name string, ctor TypeConstructor) {
	DefaultRegistry.MustRegisterType(name, ctor)
}
