package models

import (
	"fmt"
	"strings"
)

// DefaultMaxResults caps responses when the intent does not ask for a size.
const DefaultMaxResults = 20

// Constraints narrow a search. Zero values mean "no constraint".
type Constraints struct {
	MaxPrice       *float64   `json:"max_price,omitempty"`
	MaxTimeMinutes *int       `json:"max_time_minutes,omitempty"`
	Location       string     `json:"location,omitempty"`
	MaxResults     int        `json:"max_results,omitempty"`
	Platforms      []Platform `json:"platforms,omitempty"`
}

// SearchIntent is the parsed request handed to the orchestrator.
// Build it with NewSearchIntent and treat it as a value.
type SearchIntent struct {
	Category    Category    `json:"category"`
	Query       string      `json:"query"`
	Constraints Constraints `json:"constraints"`
	UserID      string      `json:"user_id,omitempty"`
}

// NewSearchIntent validates its inputs and copies the platform filter.
func NewSearchIntent(category Category, query string, constraints Constraints, userID string) (SearchIntent, error) {
	if !category.Valid() {
		return SearchIntent{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchIntent{}, fmt.Errorf("query is empty")
	}
	if constraints.MaxPrice != nil && *constraints.MaxPrice <= 0 {
		return SearchIntent{}, fmt.Errorf("max_price must be positive")
	}
	if constraints.MaxTimeMinutes != nil && *constraints.MaxTimeMinutes <= 0 {
		return SearchIntent{}, fmt.Errorf("max_time_minutes must be positive")
	}
	if constraints.MaxResults < 0 {
		return SearchIntent{}, fmt.Errorf("max_results must not be negative")
	}

	platforms := make([]Platform, 0, len(constraints.Platforms))
	seen := make(map[Platform]bool, len(constraints.Platforms))
	for _, p := range constraints.Platforms {
		if seen[p] {
			continue
		}
		seen[p] = true
		c, ok := p.Category()
		if !ok {
			return SearchIntent{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
		}
		if c != category {
			return SearchIntent{}, fmt.Errorf("platform %s does not serve category %s", p, category)
		}
		platforms = append(platforms, p)
	}
	constraints.Platforms = platforms

	if constraints.MaxPrice != nil {
		v := *constraints.MaxPrice
		constraints.MaxPrice = &v
	}
	if constraints.MaxTimeMinutes != nil {
		v := *constraints.MaxTimeMinutes
		constraints.MaxTimeMinutes = &v
	}

	return SearchIntent{
		Category:    category,
		Query:       query,
		Constraints: constraints,
		UserID:      strings.TrimSpace(userID),
	}, nil
}

// NormalizedQuery lowercases and collapses whitespace; it feeds cache keys.
func (i SearchIntent) NormalizedQuery() string {
	return strings.Join(strings.Fields(strings.ToLower(i.Query)), " ")
}

// ResultLimit returns the requested size, else fallback, else
// DefaultMaxResults.
func (i SearchIntent) ResultLimit(fallback int) int {
	switch {
	case i.Constraints.MaxResults > 0:
		return i.Constraints.MaxResults
	case fallback > 0:
		return fallback
	default:
		return DefaultMaxResults
	}
}

// TargetPlatforms is the platform filter, or every platform of the category.
func (i SearchIntent) TargetPlatforms() []Platform {
	if len(i.Constraints.Platforms) > 0 {
		out := make([]Platform, len(i.Constraints.Platforms))
		copy(out, i.Constraints.Platforms)
		return out
	}
	return PlatformsFor(i.Category)
}
