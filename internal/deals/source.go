package deals

import (
	"context"
	"sort"
	"sync"
	"time"

	"smart-dealer/internal/models"
)

// Source returns the deals usable for a category at a given instant.
type Source interface {
	ActiveDeals(ctx context.Context, category models.Category, at time.Time) ([]models.Deal, error)
}

// Catalog is an in-memory Source whose contents can be swapped atomically,
// for example when the catalog file is reloaded.
type Catalog struct {
	mu         sync.RWMutex
	byCategory map[models.Category][]models.Deal
}

func NewCatalog(deals []models.Deal) *Catalog {
	c := &Catalog{}
	c.Replace(deals)
	return c
}

// Replace swaps the whole catalog.
func (c *Catalog) Replace(deals []models.Deal) {
	next := make(map[models.Category][]models.Deal)
	for _, d := range deals {
		next[d.Category] = append(next[d.Category], d)
	}
	for cat := range next {
		sort.Slice(next[cat], func(i, j int) bool { return next[cat][i].ID < next[cat][j].ID })
	}

	c.mu.Lock()
	c.byCategory = next
	c.mu.Unlock()
}

func (c *Catalog) ActiveDeals(_ context.Context, category models.Category, at time.Time) ([]models.Deal, error) {
	c.mu.RLock()
	all := c.byCategory[category]
	c.mu.RUnlock()

	out := make([]models.Deal, 0, len(all))
	for _, d := range all {
		if d.ActiveAt(at) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Len counts deals across categories.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, ds := range c.byCategory {
		n += len(ds)
	}
	return n
}
