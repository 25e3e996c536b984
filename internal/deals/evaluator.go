// Package deals applies discount rules to offers and sources the active rules.
package deals

import (
	"math"
	"time"

	"smart-dealer/internal/models"
)

const discountEpsilon = 1e-9

// Evaluator picks the single best eligible deal for an offer. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	now func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// WithClock fixes the instant used to check deal validity windows.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Discount computes what d would take off offer, or false when d does not apply.
// The result is capped by MaxDiscount and by the pre-discount total.
func Discount(offer models.Offer, d models.Deal, at time.Time) (float64, bool) {
	if !d.Targets(offer.Platform) || !d.ActiveAt(at) {
		return 0, false
	}

	subtotal := models.ComputeTotal(offer.BasePrice, models.FeeBreakdown{
		DeliveryFee: offer.Fees.DeliveryFee,
		ServiceFee:  offer.Fees.ServiceFee,
		Tax:         offer.Fees.Tax,
	})
	if d.MinOrder != nil && subtotal < *d.MinOrder {
		return 0, false
	}

	var amount float64
	switch {
	case d.DiscountAmount != nil:
		amount = *d.DiscountAmount
	case d.DiscountPercent != nil:
		amount = models.RoundCents(offer.BasePrice * *d.DiscountPercent / 100)
	default:
		return 0, false
	}
	if d.MaxDiscount != nil {
		amount = math.Min(amount, *d.MaxDiscount)
	}
	amount = math.Min(amount, subtotal)
	if amount <= 0 {
		return 0, false
	}
	return amount, true
}

// Apply returns an adjusted copy of offer and the deal that was applied, if any.
// Among eligible deals the largest discount wins, ties going to the lowest id.
// With no eligible deal the offer comes back unchanged.
func (e *Evaluator) Apply(offer models.Offer, candidates []models.Deal) (models.Offer, *models.Deal) {
	at := e.now()

	var (
		best       *models.Deal
		bestAmount float64
	)
	for i := range candidates {
		d := candidates[i]
		amount, ok := Discount(offer, d, at)
		if !ok {
			continue
		}
		switch {
		case best == nil,
			amount > bestAmount+discountEpsilon,
			math.Abs(amount-bestAmount) <= discountEpsilon && d.ID < best.ID:
			best = &d
			bestAmount = amount
		}
	}

	out := offer.Clone()
	if best == nil {
		return out, nil
	}

	out.Fees.Discount = bestAmount
	out.TotalPrice = models.ComputeTotal(out.BasePrice, out.Fees)
	out.DealsApplied = append(out.DealsApplied, best.Label())
	out.DealIDs = append(out.DealIDs, best.ID)
	return out, best
}
