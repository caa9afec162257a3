package folding

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BackendFactory creates a backend from free-form options.
type BackendFactory func(opts map[string]any) (Backend, error)

// Registry maps backend names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]BackendFactory)}
}

// Register adds a backend factory under name.
func (r *Registry) Register(name string, factory BackendFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return ErrInvalidRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %q", ErrBackendExists, name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a backend by name.
func (r *Registry) Create(name string, opts map[string]any) (Backend, error) {
	name = strings.TrimSpace(name)

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, name)
	}

	backend, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("folding: create backend %q: %w", name, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: factory %q returned nil", ErrNilBackend, name)
	}
	return backend, nil
}

// NewEngine creates the named backend and wraps it in an Engine.
func (r *Registry) NewEngine(name string, opts map[string]any, engineOpts ...Option) (*Engine, error) {
	backend, err := r.Create(name, opts)
	if err != nil {
		return nil, err
	}
	return NewEngine(backend, engineOpts...)
}

// List returns registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the process-wide backend registry.
var DefaultRegistry = NewRegistry()
