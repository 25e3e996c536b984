package models

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the closed set of search verticals.
type Category string

const (
	CategoryFood    Category = "food"
	CategoryProduct Category = "product"
	CategoryRide    Category = "ride"
	CategoryHotel   Category = "hotel"
)

// Categories lists every category in registry order.
var Categories = []Category{CategoryFood, CategoryProduct, CategoryRide, CategoryHotel}

var ErrUnknownCategory = errors.New("unknown category")

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryProduct, CategoryRide, CategoryHotel:
		return true
	default:
		return false
	}
}

func (c Category) String() string { return string(c) }

// TimeLabel names what an offer's minutes mean in this category.
func (c Category) TimeLabel() string {
	switch c {
	case CategoryFood:
		return "delivery"
	case CategoryProduct:
		return "shipping"
	case CategoryRide:
		return "pickup"
	case CategoryHotel:
		return "check-in"
	default:
		return "time"
	}
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}
