// Package adapters holds the per-platform integrations the search
// orchestrator fans out to, and the per-category registry it reads them from.
package adapters

import (
	"context"
	"fmt"
	"sync"

	"smart-dealer/internal/models"
)

// Adapter produces offers for one platform. Implementations must be
// idempotent for the same intent and must honour ctx cancellation.
type Adapter interface {
	Platform() models.Platform
	Search(ctx context.Context, intent models.SearchIntent) ([]models.Offer, error)
}

// AdapterFunc lets a plain function serve as an Adapter.
type AdapterFunc struct {
	ID models.Platform
	Fn func(ctx context.Context, intent models.SearchIntent) ([]models.Offer, error)
}

func (f AdapterFunc) Platform() models.Platform { return f.ID }

func (f AdapterFunc) Search(ctx context.Context, intent models.SearchIntent) ([]models.Offer, error) {
	return f.Fn(ctx, intent)
}

// Registry maps each platform to its adapter. It is filled at startup and
// read concurrently by every search afterwards.
type Registry struct {
	adapters map[models.Platform]Adapter
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.Platform]Adapter)}
}

// Register adds an adapter. Unknown platforms and duplicates are rejected.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := a.Platform()
	if !p.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownPlatform, p)
	}
	if _, exists := r.adapters[p]; exists {
		return fmt.Errorf("adapter already registered: %s", p)
	}
	r.adapters[p] = a
	return nil
}

// Get returns the adapter for one platform.
func (r *Registry) Get(p models.Platform) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	return a, ok
}

// For resolves an intent to its ordered adapter set. Platforms without a
// registered adapter are skipped.
func (r *Registry) For(intent models.SearchIntent) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := intent.TargetPlatforms()
	out := make([]Adapter, 0, len(platforms))
	for _, p := range platforms {
		if a, ok := r.adapters[p]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Platforms lists registered platforms grouped by category, in registry order.
func (r *Registry) Platforms() map[models.Category][]models.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[models.Category][]models.Platform, len(models.Categories))
	for _, c := range models.Categories {
		for _, p := range models.PlatformsFor(c) {
			if _, ok := r.adapters[p]; ok {
				out[c] = append(out[c], p)
			}
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
