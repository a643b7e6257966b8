package plugins

import (
	"fmt"
	"sort"
	"sync"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// Registry holds the available plugins keyed by name.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin. Registering two plugins under the same name is
// a programming error.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[p.Name()]; exists {
		panic(fmt.Sprintf("plugins: duplicate registration for %q", p.Name()))
	}
	r.plugins[p.Name()] = p
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrPluginNotFound, name)
	}
	return p, nil
}

// Names returns registered plugin names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns name -> description for every registered plugin.
func (r *Registry) Describe() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.plugins))
	for name, p := range r.plugins {
		out[name] = p.Describe()
	}
	return out
}

// DefaultRegistry builds the registry with the built-in plugin set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Interpret{})
	r.Register(&Clustering{})
	r.Register(&Anomaly{})
	r.Register(&Visualize{})
	r.Register(NewSummarize())
	r.Register(NewSentiment())
	r.Register(NewCategorize())
	r.Register(NewEntity())
	return r
}
