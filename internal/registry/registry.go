// Package registry is where the server publishes its long-lived services
// (gateway, sessions, views, renderer, event bus) for modules to pick up
// while they boot.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nfrund/durian/internal/config"
)

// ErrNotRegistered is returned by Resolve when nothing was stored under a
// key, or the stored value has a different type.
var ErrNotRegistered = errors.New("service not registered")

// Key names a service and fixes its type. Names are dotted, "auth.sessions".
type Key[T any] string

// Registry is safe for concurrent use, although in practice it is written
// by server.New and only read afterwards.
type Registry struct {
	mu       sync.RWMutex
	services map[string]any
	cfg      config.Provider
}

func New(cfg config.Provider) *Registry {
	return &Registry{services: make(map[string]any), cfg: cfg}
}

// Config returns the application configuration.
func (r *Registry) Config() config.Provider {
	return r.cfg
}

// Names lists the registered keys in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set stores value under key, replacing any earlier value.
func Set[T any](r *Registry, key Key[T], value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[string(key)] = value
}

// Get is Resolve without the error detail.
func Get[T any](r *Registry, key Key[T]) (T, bool) {
	v, err := Resolve(r, key)
	return v, err == nil
}

// Resolve returns the service stored under key.
func Resolve[T any](r *Registry, key Key[T]) (T, error) {
	var zero T
	r.mu.RLock()
	val, ok := r.services[string(key)]
	r.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotRegistered, string(key))
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T, not %T", ErrNotRegistered, string(key), val, zero)
	}
	return typed, nil
}

// MustGet is for module Boot, where a missing core service is a wiring bug.
func MustGet[T any](r *Registry, key Key[T]) T {
	v, err := Resolve(r, key)
	if err != nil {
		panic(err.Error())
	}
	return v
}
