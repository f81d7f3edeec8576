package embedding

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe provider-factory registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry creates a registry pre-populated with the mock
// provider, used when no other provider is configured.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(&MockFactory{})
	return r
}

func (r *Registry) Register(f Factory) error {
	if f == nil {
		return fmt.Errorf("cannot register nil factory")
	}
	name := f.Name()
	if name == "" {
		return fmt.Errorf("factory name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("factory %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

func (r *Registry) MustRegister(f Factory) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q not registered", name)
	}
	return f, nil
}

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

// Build looks up name and constructs a Provider from config in one step.
func (r *Registry) Build(name string, config map[string]any) (Provider, error) {
	f, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return f.Create(config)
}
