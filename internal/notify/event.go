// Package notify publishes deal events produced by completed searches.
package notify

import (
	"time"

	"github.com/google/uuid"

	"smart-dealer/internal/models"
)

type EventType string

const (
	EventDealApplied EventType = "deal_applied"
	EventSurgeAlert  EventType = "surge_alert"
)

// Event is one notification. Fields not relevant to the type are empty.
type Event struct {
	ID              string          `json:"id"`
	Type            EventType       `json:"type"`
	SearchID        string          `json:"search_id"`
	Category        models.Category `json:"category"`
	Platform        models.Platform `json:"platform,omitempty"`
	DealID          string          `json:"deal_id,omitempty"`
	Message         string          `json:"message"`
	OfferCount      int             `json:"offer_count,omitempty"`
	SurgeMultiplier float64         `json:"surge_multiplier,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// DealApplied reports that a deal discounted offerCount offers in a search.
func DealApplied(searchID string, category models.Category, d models.Deal, offerCount int, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       EventDealApplied,
		SearchID:   searchID,
		Category:   category,
		Platform:   d.Platform,
		DealID:     d.ID,
		Message:    d.Label(),
		OfferCount: offerCount,
		OccurredAt: at.UTC(),
	}
}

// SurgeAlert reports a ride quote priced above normal.
func SurgeAlert(searchID string, o models.Offer, at time.Time) Event {
	surge := 0.0
	if o.SurgeMultiplier != nil {
		surge = *o.SurgeMultiplier
	}
	return Event{
		ID:              uuid.NewString(),
		Type:            EventSurgeAlert,
		SearchID:        searchID,
		Category:        models.CategoryRide,
		Platform:        o.Platform,
		Message:         o.Platform.DisplayName() + " is surging",
		SurgeMultiplier: surge,
		OccurredAt:      at.UTC(),
	}
}
