// Package ranking scores offers on a 0-1 scale and orders them.
package ranking

import (
	"math"
	"sort"
	"time"

	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/models"
)

const (
	// NeutralRating stands in for offers without a rating.
	NeutralRating = 2.5
	// NeutralPreference is used for platforms the user expressed nothing about.
	NeutralPreference = 0.5

	maxRating = 5.0
)

// Preferences maps a platform to the user's affinity for it, in [0,1].
type Preferences map[models.Platform]float64

func (p Preferences) scoreFor(platform models.Platform) float64 {
	v, ok := p[platform]
	if !ok || math.IsNaN(v) {
		return NeutralPreference
	}
	return clamp01(v)
}

// bounds tracks the observed range of one metric.
type bounds struct {
	min, max float64
	seen     bool
}

func (b *bounds) observe(v float64) {
	if !b.seen {
		b.min, b.max, b.seen = v, v, true
		return
	}
	b.min = math.Min(b.min, v)
	b.max = math.Max(b.max, v)
}

// inverted maps v to [0,1] with the smallest value scoring 1. A constant
// metric scores 1 for everyone.
func (b bounds) inverted(v float64) float64 {
	if !b.seen || b.max-b.min <= 0 {
		return 1.0
	}
	return clamp01(1 - (v-b.min)/(b.max-b.min))
}

// Rank scores and orders offers. It is a pure function of its inputs.
// Weights must sum to 1 within models.WeightTolerance.
func Rank(offers []models.Offer, weights models.WeightVector, prefs Preferences) ([]models.RankedResult, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return []models.RankedResult{}, nil
	}

	var price, fee, minutes bounds
	for _, o := range offers {
		price.observe(o.TotalPrice)
		fee.observe(o.Fees.Penalty())
		if o.TimeMinutes != nil {
			minutes.observe(float64(*o.TimeMinutes))
		}
	}

	results := make([]models.RankedResult, len(offers))
	for i, o := range offers {
		// missing time counts as the slowest observed, so it earns no bonus
		t := minutes.max
		if o.TimeMinutes != nil {
			t = float64(*o.TimeMinutes)
		}
		rating := NeutralRating
		if o.Rating != nil {
			rating = *o.Rating
		}

		s := models.ScoreBreakdown{
			Price:      price.inverted(o.TotalPrice),
			Time:       minutes.inverted(t),
			Rating:     clamp01(rating / maxRating),
			Fee:        fee.inverted(o.Fees.Penalty()),
			Preference: prefs.scoreFor(o.Platform),
		}

		results[i] = models.RankedResult{
			Offer: o.Clone(),
			ValueScore: weights.Price*s.Price +
				weights.Time*s.Time +
				weights.Rating*s.Rating +
				weights.Fee*s.Fee +
				weights.Preference*s.Preference,
			Scores: s,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.ValueScore != b.ValueScore {
			return a.ValueScore > b.ValueScore
		}
		if a.TotalPrice != b.TotalPrice {
			return a.TotalPrice < b.TotalPrice
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return a.ItemName < b.ItemName
	})

	for i := range results {
		results[i].Rank = i + 1
		results[i].SavingsVsMax = math.Max(0, models.Difference(price.max, results[i].TotalPrice))
	}
	return results, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Engine wraps Rank with logging.
type Engine struct {
	logger        logger.Logger
	slowThreshold time.Duration
}

func NewEngine(log logger.Logger) *Engine {
	return &Engine{
		logger:        logger.ForComponent(log, "ranking"),
		slowThreshold: 500 * time.Millisecond,
	}
}

func (e *Engine) Rank(offers []models.Offer, weights models.WeightVector, prefs Preferences) ([]models.RankedResult, error) {
	start := time.Now()

	results, err := Rank(offers, weights, prefs)
	if err != nil {
		e.logger.Error("ranking rejected weight vector", map[string]interface{}{
			"error":     err.Error(),
			"weightSum": weights.Sum(),
		})
		return nil, err
	}

	duration := time.Since(start)
	fields := map[string]interface{}{
		"inputCount": len(offers),
		"durationMs": duration.Milliseconds(),
	}
	if len(results) > 0 {
		fields["topPlatform"] = results[0].Platform
		fields["topScore"] = results[0].ValueScore
	}
	e.logger.Debug("ranking completed", fields)

	if duration > e.slowThreshold {
		e.logger.Warn("ranking slower than expected", map[string]interface{}{
			"durationMs": duration.Milliseconds(),
			"offers":     len(offers),
		})
	}
	return results, nil
}
