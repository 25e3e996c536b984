package deals

import "smart-dealer/internal/models"

// DefaultDeals is the built-in catalog used when no catalog file is configured.
func DefaultDeals() []models.Deal {
	num := models.Float64Ptr
	return []models.Deal{
		{
			ID: "deal-ubereats-eat20off", Description: "20% off your first Uber Eats order", Code: "EAT20OFF",
			Type: models.DealTypePromoCode, Category: models.CategoryFood, Platform: models.PlatformUberEats,
			DiscountPercent: num(20), MaxDiscount: num(10),
		},
		{
			ID: "deal-doordash-dash5", Description: "$5 off orders over $25", Code: "DASH5",
			Type: models.DealTypePromoCode, Category: models.CategoryFood, Platform: models.PlatformDoorDash,
			DiscountAmount: num(5), MinOrder: num(25),
		},
		{
			ID: "deal-amazon-cashback", Description: "5% cashback with Amazon Prime card",
			Type: models.DealTypeCashback, Category: models.CategoryProduct, Platform: models.PlatformAmazon,
			DiscountPercent: num(5),
		},
		{
			ID: "deal-walmart-flash", Description: "Flash sale: 30% off electronics",
			Type: models.DealTypeFlashSale, Category: models.CategoryProduct, Platform: models.PlatformWalmart,
			DiscountPercent: num(30),
		},
		{
			ID: "deal-uber-ride10", Description: "$10 off your next ride", Code: "RIDE10",
			Type: models.DealTypePromoCode, Category: models.CategoryRide, Platform: models.PlatformUber,
			DiscountAmount: num(10),
		},
		{
			ID: "deal-lyft-lyft15", Description: "15% off Lyft rides", Code: "LYFT15",
			Type: models.DealTypePromoCode, Category: models.CategoryRide, Platform: models.PlatformLyft,
			DiscountPercent: num(15), MaxDiscount: num(8),
		},
		{
			ID: "deal-booking-seasonal", Description: "Summer sale: 15% off hotels",
			Type: models.DealTypeSeasonal, Category: models.CategoryHotel, Platform: models.PlatformBooking,
			DiscountPercent: num(15),
		},
		{
			ID: "deal-airbnb-weekly", Description: "10% off stays of a week or more",
			Type: models.DealTypeSeasonal, Category: models.CategoryHotel, Platform: models.PlatformAirbnb,
			DiscountPercent: num(10),
		},
	}
}
