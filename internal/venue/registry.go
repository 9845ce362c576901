// Package venue implements the exchange venue adapters consumed by the
// decision pipeline: an in-memory constant-product (AMM v2) venue, a
// stable-swap variant, and an on-chain adapter backed by go-ethereum.
package venue

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// Registry holds venue adapters keyed by venue name. A configured venue name
// with no registered adapter is a configuration error and surfaces as a
// wrapped domain.ErrNoAdapter from Get.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]domain.VenueAdapter
}

// NewRegistry returns an empty registry. Call Register to add adapters.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]domain.VenueAdapter)}
}

// Register adds an adapter under its own name.
func (r *Registry) Register(a domain.VenueAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for the given venue name.
func (r *Registry) Get(name string) (domain.VenueAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("venue %q: %w", name, domain.ErrNoAdapter)
	}
	return a, nil
}

// List returns all registered venue names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
