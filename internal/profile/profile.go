// Package profile stores per-user ranking weights and platform preferences.
package profile

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/models"
	"smart-dealer/internal/ranking"
)

// Profile is what a user has told us about how they like results ranked.
type Profile struct {
	UserID             string                      `json:"user_id"`
	Weights            models.WeightVector         `json:"weights"`
	PreferredPlatforms map[models.Platform]float64 `json:"preferred_platforms"`
	BudgetMax          *float64                    `json:"budget_max,omitempty"`
	DefaultLocation    string                      `json:"default_location,omitempty"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

// Store reads and writes profiles. Get fails with PROFILE_NOT_FOUND for
// unknown users.
type Store interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Put(ctx context.Context, p Profile) error
}

// Default is the profile used for anonymous searches and unknown users.
func Default(userID string) Profile {
	return Profile{
		UserID:             userID,
		Weights:            models.DefaultWeights(),
		PreferredPlatforms: map[models.Platform]float64{},
	}
}

// Validate rejects weights that do not sum to 1 and preferences outside [0,1].
func (p Profile) Validate() error {
	if p.UserID == "" {
		return apperrors.NewInvalidRequestError("user_id is required")
	}
	if err := p.Weights.Validate(); err != nil {
		se, _ := apperrors.AsStandard(err)
		return apperrors.NewInvalidRequestError(se.Details)
	}
	for platform, v := range p.PreferredPlatforms {
		if !platform.Valid() {
			return apperrors.NewInvalidRequestError(fmt.Sprintf("unknown platform %q", platform))
		}
		if v < 0 || v > 1 || math.IsNaN(v) {
			return apperrors.NewInvalidRequestError(fmt.Sprintf("preference for %s is %v, expected 0..1", platform, v))
		}
	}
	if p.BudgetMax != nil && *p.BudgetMax <= 0 {
		return apperrors.NewInvalidRequestError("budget_max must be positive")
	}
	return nil
}

// PreferenceFor is the user_preference_score the ranking engine uses.
func (p Profile) PreferenceFor(platform models.Platform) float64 {
	if v, ok := p.PreferredPlatforms[platform]; ok {
		return v
	}
	return ranking.NeutralPreference
}

// Preferences copies the platform preferences into the ranking engine's type.
func (p Profile) Preferences() ranking.Preferences {
	out := make(ranking.Preferences, len(p.PreferredPlatforms))
	for k, v := range p.PreferredPlatforms {
		out[k] = v
	}
	return out
}

func (p Profile) clone() Profile {
	out := p
	out.PreferredPlatforms = make(map[models.Platform]float64, len(p.PreferredPlatforms))
	for k, v := range p.PreferredPlatforms {
		out.PreferredPlatforms[k] = v
	}
	if p.BudgetMax != nil {
		v := *p.BudgetMax
		out.BudgetMax = &v
	}
	return out
}
