package models

import (
	"fmt"
	"time"
)

type DealType string

const (
	DealTypePromoCode  DealType = "promo_code"
	DealTypeCashback   DealType = "cashback"
	DealTypeCreditCard DealType = "credit_card"
	DealTypeSeasonal   DealType = "seasonal"
	DealTypeFlashSale  DealType = "flash_sale"
	DealTypeLoyalty    DealType = "loyalty"
)

func (t DealType) Valid() bool {
	switch t {
	case DealTypePromoCode, DealTypeCashback, DealTypeCreditCard,
		DealTypeSeasonal, DealTypeFlashSale, DealTypeLoyalty:
		return true
	default:
		return false
	}
}

// Deal is a discount rule. When both numeric forms are set the flat amount wins.
type Deal struct {
	ID              string     `json:"id" yaml:"id"`
	Description     string     `json:"description" yaml:"description"`
	Code            string     `json:"code,omitempty" yaml:"code"`
	Type            DealType   `json:"type" yaml:"type"`
	Category        Category   `json:"category" yaml:"category"`
	Platform        Platform   `json:"platform" yaml:"platform"`
	DiscountPercent *float64   `json:"discount_percent,omitempty" yaml:"discount_percent"`
	DiscountAmount  *float64   `json:"discount_amount,omitempty" yaml:"discount_amount"`
	MinOrder        *float64   `json:"min_order,omitempty" yaml:"min_order"`
	MaxDiscount     *float64   `json:"max_discount,omitempty" yaml:"max_discount"`
	ValidFrom       *time.Time `json:"valid_from,omitempty" yaml:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until,omitempty" yaml:"valid_until"`
}

// Targets reports whether the deal can apply to an offer from p.
func (d Deal) Targets(p Platform) bool {
	if d.Platform == PlatformAny || d.Platform == "" {
		c, ok := p.Category()
		return ok && c == d.Category
	}
	return d.Platform == p
}

// ActiveAt reports whether at falls inside the validity window.
func (d Deal) ActiveAt(at time.Time) bool {
	if d.ValidFrom != nil && at.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && !at.Before(*d.ValidUntil) {
		return false
	}
	return true
}

// Label is the text appended to an offer's applied deals.
func (d Deal) Label() string {
	if d.Code != "" {
		return fmt.Sprintf("%s (code: %s)", d.Description, d.Code)
	}
	return d.Description
}

func (d Deal) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("deal has no id")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("deal %s: %w: %q", d.ID, ErrUnknownCategory, d.Category)
	}
	if d.Platform != PlatformAny && d.Platform != "" {
		c, ok := d.Platform.Category()
		if !ok {
			return fmt.Errorf("deal %s: %w: %q", d.ID, ErrUnknownPlatform, d.Platform)
		}
		if c != d.Category {
			return fmt.Errorf("deal %s: platform %s is not in category %s", d.ID, d.Platform, d.Category)
		}
	}
	if d.DiscountPercent == nil && d.DiscountAmount == nil {
		return fmt.Errorf("deal %s has neither discount_percent nor discount_amount", d.ID)
	}
	if d.DiscountPercent != nil && (*d.DiscountPercent <= 0 || *d.DiscountPercent > 100) {
		return fmt.Errorf("deal %s: discount_percent %v outside (0, 100]", d.ID, *d.DiscountPercent)
	}
	if d.DiscountAmount != nil && *d.DiscountAmount <= 0 {
		return fmt.Errorf("deal %s: discount_amount must be positive", d.ID)
	}
	if d.Type != "" && !d.Type.Valid() {
		return fmt.Errorf("deal %s: unknown type %q", d.ID, d.Type)
	}
	return nil
}
