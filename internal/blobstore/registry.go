package blobstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type registration struct {
	backend      Backend
	publicPrefix string
}

// Registry resolves backends by the name recorded on each file.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: map[string]registration{}}
}

// Register adds or replaces a named backend.
func (r *Registry) Register(name string, backend Backend, publicPrefix string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("backend name is required")
	}
	if backend == nil {
		return fmt.Errorf("backend %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = registration{backend: backend, publicPrefix: publicPrefix}
	return nil
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	return reg.backend, nil
}

// PublicPrefix returns the public URL prefix configured for name.
func (r *Registry) PublicPrefix(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.backends[name]
	if !ok || reg.publicPrefix == "" {
		return "", false
	}
	return reg.publicPrefix, true
}

// Names lists registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
