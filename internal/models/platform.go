package models

import (
	"errors"
	"fmt"
	"strings"
)

// Platform identifies one third-party marketplace.
type Platform string

const (
	PlatformUberEats  Platform = "uber_eats"
	PlatformDoorDash  Platform = "doordash"
	PlatformGrubhub   Platform = "grubhub"
	PlatformPostmates Platform = "postmates"

	PlatformAmazon  Platform = "amazon"
	PlatformEbay    Platform = "ebay"
	PlatformWalmart Platform = "walmart"
	PlatformTarget  Platform = "target"
	PlatformBestBuy Platform = "bestbuy"

	PlatformUber Platform = "uber"
	PlatformLyft Platform = "lyft"
	PlatformTaxi Platform = "taxi"

	PlatformBooking   Platform = "booking"
	PlatformExpedia   Platform = "expedia"
	PlatformAirbnb    Platform = "airbnb"
	PlatformHotelsCom Platform = "hotels_com"
	PlatformVrbo      Platform = "vrbo"

	// PlatformAny targets every platform of a deal's category.
	PlatformAny Platform = "*"
)

var ErrUnknownPlatform = errors.New("unknown platform")

var platformsByCategory = map[Category][]Platform{
	CategoryFood:    {PlatformUberEats, PlatformDoorDash, PlatformGrubhub, PlatformPostmates},
	CategoryProduct: {PlatformAmazon, PlatformEbay, PlatformWalmart, PlatformTarget, PlatformBestBuy},
	CategoryRide:    {PlatformUber, PlatformLyft, PlatformTaxi},
	CategoryHotel:   {PlatformBooking, PlatformExpedia, PlatformAirbnb, PlatformHotelsCom, PlatformVrbo},
}

// PlatformsFor returns the ordered platforms of a category. The slice is a copy.
func PlatformsFor(c Category) []Platform {
	src := platformsByCategory[c]
	out := make([]Platform, len(src))
	copy(out, src)
	return out
}

// Category returns the vertical a platform belongs to.
func (p Platform) Category() (Category, bool) {
	switch p {
	case PlatformUberEats, PlatformDoorDash, PlatformGrubhub, PlatformPostmates:
		return CategoryFood, true
	case PlatformAmazon, PlatformEbay, PlatformWalmart, PlatformTarget, PlatformBestBuy:
		return CategoryProduct, true
	case PlatformUber, PlatformLyft, PlatformTaxi:
		return CategoryRide, true
	case PlatformBooking, PlatformExpedia, PlatformAirbnb, PlatformHotelsCom, PlatformVrbo:
		return CategoryHotel, true
	default:
		return "", false
	}
}

func (p Platform) Valid() bool {
	_, ok := p.Category()
	return ok
}

func (p Platform) String() string { return string(p) }

// DisplayName is the marketplace's own spelling.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformUberEats:
		return "Uber Eats"
	case PlatformDoorDash:
		return "DoorDash"
	case PlatformGrubhub:
		return "Grubhub"
	case PlatformPostmates:
		return "Postmates"
	case PlatformAmazon:
		return "Amazon"
	case PlatformEbay:
		return "eBay"
	case PlatformWalmart:
		return "Walmart"
	case PlatformTarget:
		return "Target"
	case PlatformBestBuy:
		return "Best Buy"
	case PlatformUber:
		return "Uber"
	case PlatformLyft:
		return "Lyft"
	case PlatformTaxi:
		return "Taxi"
	case PlatformBooking:
		return "Booking.com"
	case PlatformExpedia:
		return "Expedia"
	case PlatformAirbnb:
		return "Airbnb"
	case PlatformHotelsCom:
		return "Hotels.com"
	case PlatformVrbo:
		return "Vrbo"
	case PlatformAny:
		return "All platforms"
	default:
		return string(p)
	}
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// PlatformInfo is the public description served by the platforms endpoint.
type PlatformInfo struct {
	ID          Platform `json:"id"`
	DisplayName string   `json:"display_name"`
}

// PlatformCatalog lists every category with its platforms.
func PlatformCatalog() map[Category][]PlatformInfo {
	out := make(map[Category][]PlatformInfo, len(Categories))
	for _, c := range Categories {
		for _, p := range platformsByCategory[c] {
			out[c] = append(out[c], PlatformInfo{ID: p, DisplayName: p.DisplayName()})
		}
	}
	return out
}
