package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// Factory builds a fresh strategy instance, so repeated runs never share
// state.
type Factory func() Strategy

// Registry manages the strategies available to the command layer.
type Registry interface {
	Register(name string, factory Factory) error
	Get(name string) (Strategy, error)
	List() []string
}

// RegistryV1 is a mutex-guarded name-to-factory map.
type RegistryV1 struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() Registry {
	return &RegistryV1{
		factories: make(map[string]Factory),
	}
}

// Register adds a strategy factory under a name.
func (r *RegistryV1) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy name must not be empty")
	}

	if factory == nil {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strategy %s registered with a nil factory", name)
	}

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "strategy %s already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Get builds a fresh instance of the named strategy.
func (r *RegistryV1) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not registered", name)
	}

	return factory(), nil
}

// List returns the registered strategy names in sorted order.
func (r *RegistryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
