package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceTolerance is the slack allowed when checking that a total reconciles.
const PriceTolerance = 1e-6

// FeeBreakdown itemizes everything charged on top of the base price.
// All amounts are non-negative.
type FeeBreakdown struct {
	DeliveryFee float64 `json:"delivery_fee"`
	ServiceFee  float64 `json:"service_fee"`
	Tax         float64 `json:"tax"`
	Discount    float64 `json:"discount"`
}

// Penalty is the fee figure used for ranking: tax and discount are excluded.
func (f FeeBreakdown) Penalty() float64 {
	return f.DeliveryFee + f.ServiceFee
}

// Offer is one normalized priced item returned by a platform.
type Offer struct {
	Platform     Platform     `json:"platform"`
	Category     Category     `json:"category"`
	ItemName     string       `json:"item_name"`
	BasePrice    float64      `json:"base_price"`
	Fees         FeeBreakdown `json:"fees_breakdown"`
	TotalPrice   float64      `json:"total_price"`
	Rating       *float64     `json:"rating,omitempty"`
	RatingCount  *int         `json:"rating_count,omitempty"`
	TimeMinutes  *int         `json:"time_minutes,omitempty"`
	DeepLink     string       `json:"deep_link"`
	DealsApplied []string     `json:"deals_applied"`

	// DealIDs parallels DealsApplied with the catalog ids, since two deals
	// may share a label.
	DealIDs []string `json:"-"`

	// SurgeMultiplier is only reported by ride platforms.
	SurgeMultiplier *float64 `json:"surge_multiplier,omitempty"`
}

// ComputeTotal returns base + delivery + service + tax - discount, floored at 0.
// The sum is done in decimal so cent amounts reconcile exactly.
func ComputeTotal(base float64, fees FeeBreakdown) float64 {
	total := decimal.NewFromFloat(base).
		Add(decimal.NewFromFloat(fees.DeliveryFee)).
		Add(decimal.NewFromFloat(fees.ServiceFee)).
		Add(decimal.NewFromFloat(fees.Tax)).
		Sub(decimal.NewFromFloat(fees.Discount))
	if total.IsNegative() {
		return 0
	}
	f, _ := total.Float64()
	return f
}

// RoundCents rounds a monetary amount half away from zero to two places.
func RoundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Difference returns a - b computed in decimal.
func Difference(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Float64()
	return f
}

// Reconcile returns a copy whose TotalPrice matches its fee breakdown.
func (o Offer) Reconcile() Offer {
	out := o.Clone()
	out.TotalPrice = ComputeTotal(o.BasePrice, o.Fees)
	return out
}

// Reconciled reports whether TotalPrice matches the fee breakdown.
func (o Offer) Reconciled() bool {
	return math.Abs(o.TotalPrice-ComputeTotal(o.BasePrice, o.Fees)) <= PriceTolerance
}

// Clone deep-copies the pointer and slice fields so the copy can be annotated
// without touching the original.
func (o Offer) Clone() Offer {
	out := o
	if o.Rating != nil {
		v := *o.Rating
		out.Rating = &v
	}
	if o.RatingCount != nil {
		v := *o.RatingCount
		out.RatingCount = &v
	}
	if o.TimeMinutes != nil {
		v := *o.TimeMinutes
		out.TimeMinutes = &v
	}
	if o.SurgeMultiplier != nil {
		v := *o.SurgeMultiplier
		out.SurgeMultiplier = &v
	}
	out.DealsApplied = make([]string, len(o.DealsApplied))
	copy(out.DealsApplied, o.DealsApplied)
	if o.DealIDs != nil {
		out.DealIDs = make([]string, len(o.DealIDs))
		copy(out.DealIDs, o.DealIDs)
	}
	return out
}

// Validate checks the invariants an adapter must uphold.
func (o Offer) Validate() error {
	if !o.Platform.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, o.Platform)
	}
	if o.ItemName == "" {
		return fmt.Errorf("offer from %s has no item name", o.Platform)
	}
	for name, v := range map[string]float64{
		"base_price":   o.BasePrice,
		"delivery_fee": o.Fees.DeliveryFee,
		"service_fee":  o.Fees.ServiceFee,
		"tax":          o.Fees.Tax,
		"discount":     o.Fees.Discount,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("offer from %s has invalid %s %v", o.Platform, name, v)
		}
	}
	if o.Rating != nil && (*o.Rating < 0 || *o.Rating > 5) {
		return fmt.Errorf("offer from %s has rating %v outside 0-5", o.Platform, *o.Rating)
	}
	if o.TimeMinutes != nil && *o.TimeMinutes < 0 {
		return fmt.Errorf("offer from %s has negative time", o.Platform)
	}
	return nil
}

// Float64Ptr and IntPtr help build optional offer fields.
func Float64Ptr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
