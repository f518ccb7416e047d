package sensor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/camctl/internal/ctlerr"
)

var (
	// ErrNotFound is returned when no factory is registered for an identifier.
	ErrNotFound = errors.New("sensor model not registered")

	// ErrDuplicate is returned when an identifier is registered twice.
	ErrDuplicate = errors.New("sensor model already registered")

	// ErrFrozen is returned when registering after the first lookup.
	ErrFrozen = errors.New("sensor registry frozen after first lookup")

	// ErrInvalidMode is returned for malformed capture mode descriptors.
	ErrInvalidMode = errors.New("invalid capture mode")

	// ErrInvalidDelays is returned for control delays above MaxDelay.
	ErrInvalidDelays = errors.New("invalid control delays")
)

// Factory produces a new ControlModel instance.
type Factory func() ControlModel

// Registry maps sensor identifiers to model factories.
//
// Registration happens at start-up, normally from package init functions.
// The first Create freezes the registry; from then on it is read-only.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	frozen    bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for id. Registering the same id twice, an empty
// id, a nil factory or any registration after the first lookup is a
// configuration error.
func (r *Registry) Register(id string, f Factory) error {
	if id == "" {
		return ctlerr.Configuration("register", id, errors.New("empty sensor identifier"))
	}
	if f == nil {
		return ctlerr.Configuration("register", id, errors.New("nil factory"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ctlerr.Configuration("register", id, ErrFrozen)
	}
	if _, exists := r.factories[id]; exists {
		return ctlerr.Configuration("register", id, ErrDuplicate)
	}
	r.factories[id] = f
	return nil
}

// MustRegister is Register for init functions: a duplicate is a start-up
// failure, so it panics.
func (r *Registry) MustRegister(id string, f Factory) {
	if err := r.Register(id, f); err != nil {
		panic(fmt.Sprintf("sensor: %v", err))
	}
}

// Create returns a new model for id. Unknown identifiers fail with a
// ConfigurationError wrapping ErrNotFound; the registered entries are left
// unchanged.
//
// Every lookup freezes the registry, including one that fails: start-up
// registration is over once any session has asked for a model.
func (r *Registry) Create(id string) (ControlModel, error) {
	r.mu.RLock()
	f, ok := r.factories[id]
	frozen := r.frozen
	r.mu.RUnlock()

	if !frozen {
		r.mu.Lock()
		r.frozen = true
		r.mu.Unlock()
	}

	if !ok {
		return nil, ctlerr.Configuration("create", id, ErrNotFound)
	}
	m := f()
	if m == nil {
		return nil, ctlerr.Configuration("create", id, errors.New("factory returned nil model"))
	}
	return m, nil
}

// Has reports whether id is registered. It does not freeze the registry.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// Names returns all registered identifiers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Frozen reports whether a lookup has happened.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry that model packages populate
// from init.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register adds f to the default registry.
func Register(id string, f Factory) error { return Default().Register(id, f) }

// MustRegister adds f to the default registry and panics on failure.
func MustRegister(id string, f Factory) { Default().MustRegister(id, f) }

// Create resolves id in the default registry.
func Create(id string) (ControlModel, error) { return Default().Create(id) }
