package models

import (
	"fmt"
	"math"

	apperrors "smart-dealer/internal/common/errors"
)

// WeightTolerance is how far a weight vector's sum may drift from 1.
const WeightTolerance = 1e-6

// WeightVector blends the five ranking sub-scores.
type WeightVector struct {
	Price      float64 `json:"price"`
	Time       float64 `json:"time"`
	Rating     float64 `json:"rating"`
	Fee        float64 `json:"fee"`
	Preference float64 `json:"preference"`
}

func DefaultWeights() WeightVector {
	return WeightVector{Price: 0.4, Time: 0.2, Rating: 0.2, Fee: 0.1, Preference: 0.1}
}

func (w WeightVector) Sum() float64 {
	return w.Price + w.Time + w.Rating + w.Fee + w.Preference
}

// Validate rejects negative weights and sums away from 1. It never renormalizes.
func (w WeightVector) Validate() error {
	for name, v := range map[string]float64{
		"price": w.Price, "time": w.Time, "rating": w.Rating, "fee": w.Fee, "preference": w.Preference,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.NewConfigurationError(fmt.Sprintf("weight %s is %v", name, v))
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightTolerance {
		return apperrors.NewConfigurationError(fmt.Sprintf("weights sum to %.6f, expected 1.0", sum))
	}
	return nil
}
