package adapters

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"smart-dealer/internal/models"
)

type foodProfile struct {
	label                string
	baseMin, baseMax     float64
	deliveryMax          float64
	servicePct, taxPct   float64
	timeMin, timeMax     int
	ratingMin, ratingMax float64
	countMin, countMax   int
}

type productProfile struct {
	label                string
	priceMin, priceMax   float64
	shipping             []float64
	taxPct               float64
	ratingMin, ratingMax float64
	countMin, countMax   int
	deliveryDays         []int
}

type rideTier struct {
	name       string
	multiplier float64
}

type rideProfile struct {
	fareMin, fareMax float64
	surgeMax         float64
	bookingFee       float64
	taxPct           float64
	etaMin, etaMax   int
	ratingMin        float64
	ratingMax        float64
	tiers            []rideTier
}

type hotelProfile struct {
	label                  string
	nightlyMin, nightlyMax float64
	taxPct                 float64
	resortFees             []float64
	cleaningMin            float64
	cleaningMax            float64
	servicePct             float64
	ratingMin, ratingMax   float64
	tenPointScale          bool // rates out of 10
	countMin, countMax     int
}

var foodProfiles = map[models.Platform]foodProfile{
	models.PlatformUberEats:  {"UberEats Restaurant", 8, 25, 5.99, 0.15, 0.08, 15, 45, 3.5, 5.0, 50, 2000},
	models.PlatformDoorDash:  {"DoorDash Place", 7, 24, 6.99, 0.12, 0.08, 20, 50, 3.5, 5.0, 50, 3000},
	models.PlatformGrubhub:   {"Grubhub Kitchen", 7.5, 23, 4.99, 0.10, 0.07, 20, 55, 3.2, 4.9, 30, 1500},
	models.PlatformPostmates: {"Postmates Spot", 8.5, 26, 7.99, 0.18, 0.09, 18, 40, 3.0, 4.8, 20, 1000},
}

var productProfiles = map[models.Platform]productProfile{
	models.PlatformAmazon:  {"Amazon", 5, 500, []float64{0, 0, 0, 5.99, 9.99}, 0.08, 3.0, 5.0, 100, 50000, []int{1, 2, 3, 5, 7}},
	models.PlatformEbay:    {"eBay", 3, 480, []float64{0, 0, 4.99, 7.99, 12.99}, 0.07, 3.0, 5.0, 10, 10000, []int{3, 5, 7, 10}},
	models.PlatformWalmart: {"Walmart", 4, 450, []float64{0, 0, 5.99}, 0.08, 3.0, 5.0, 50, 20000, []int{2, 3, 5}},
	models.PlatformTarget:  {"Target", 5, 400, []float64{0, 0, 5.99}, 0.075, 3.5, 5.0, 20, 8000, []int{2, 3, 5}},
	models.PlatformBestBuy: {"Best Buy", 10, 2000, []float64{0, 0, 0, 5.99}, 0.08, 3.5, 5.0, 30, 15000, []int{1, 2, 3, 5}},
}

var rideProfiles = map[models.Platform]rideProfile{
	models.PlatformUber: {8, 30, 2.5, 2.50, 0.06, 2, 15, 4.5, 5.0, []rideTier{
		{"UberX", 1.0}, {"Uber Comfort", 1.3}, {"Uber XL", 1.5}, {"Uber Black", 2.0},
	}},
	models.PlatformLyft: {7, 28, 2.0, 2.00, 0.06, 2, 15, 4.5, 5.0, []rideTier{
		{"Lyft", 1.0}, {"Lyft XL", 1.4}, {"Lux", 1.8}, {"Lux Black", 2.2},
	}},
	models.PlatformTaxi: {15, 50, 1.0, 0, 0.05, 5, 20, 3.5, 4.5, []rideTier{
		{"Standard Taxi", 1.0},
	}},
}

var hotelProfiles = map[models.Platform]hotelProfile{
	models.PlatformBooking:   {"Booking.com", 50, 400, 0.12, []float64{0, 0, 15, 25, 35}, 0, 0, 0, 7.0, 9.8, true, 100, 5000},
	models.PlatformExpedia:   {"Expedia", 45, 380, 0.13, []float64{0, 0, 20, 30}, 0, 0, 0, 3.0, 5.0, false, 50, 3000},
	models.PlatformAirbnb:    {"Airbnb", 40, 350, 0.10, nil, 20, 80, 0.14, 4.0, 5.0, false, 10, 2000},
	models.PlatformHotelsCom: {"Hotels.com", 55, 420, 0.12, nil, 0, 0, 0, 6.0, 9.5, true, 80, 4000},
	models.PlatformVrbo:      {"Vrbo", 60, 500, 0.11, nil, 30, 100, 0, 4.0, 5.0, false, 10, 1500},
}

var (
	hotelAdjectives = []string{"Grand", "Royal", "Sunset", "Ocean View", "Downtown", "Luxe", "Comfort", "Budget"}
	hotelKinds      = []string{"Hotel", "Inn", "Suites", "Resort", "Lodge", "B&B"}
)

var deepLinkBase = map[models.Platform]string{
	models.PlatformUberEats:  "https://www.ubereats.com/search",
	models.PlatformDoorDash:  "https://www.doordash.com/search/store",
	models.PlatformGrubhub:   "https://www.grubhub.com/search",
	models.PlatformPostmates: "https://postmates.com/search",
	models.PlatformAmazon:    "https://www.amazon.com/s",
	models.PlatformEbay:      "https://www.ebay.com/sch/i.html",
	models.PlatformWalmart:   "https://www.walmart.com/search",
	models.PlatformTarget:    "https://www.target.com/s",
	models.PlatformBestBuy:   "https://www.bestbuy.com/site/searchpage.jsp",
	models.PlatformUber:      "https://m.uber.com/looking",
	models.PlatformLyft:      "https://ride.lyft.com",
	models.PlatformTaxi:      "",
	models.PlatformBooking:   "https://www.booking.com/searchresults.html",
	models.PlatformExpedia:   "https://www.expedia.com/Hotel-Search",
	models.PlatformAirbnb:    "https://www.airbnb.com/s/homes",
	models.PlatformHotelsCom: "https://www.hotels.com/Hotel-Search",
	models.PlatformVrbo:      "https://www.vrbo.com/search",
}

// Simulated generates plausible offers from per-platform price models. The
// generator is seeded from the intent, so the same search always yields the
// same offers.
type Simulated struct {
	platform models.Platform
	category models.Category
	latency  time.Duration
}

type SimulatedOption func(*Simulated)

// WithLatency delays every response, which makes timeouts reproducible.
func WithLatency(d time.Duration) SimulatedOption {
	return func(s *Simulated) { s.latency = d }
}

func NewSimulated(p models.Platform, opts ...SimulatedOption) (*Simulated, error) {
	c, ok := p.Category()
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownPlatform, p)
	}
	s := &Simulated{platform: p, category: c}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterSimulated registers a simulated adapter for every known platform.
func RegisterSimulated(r *Registry, opts ...SimulatedOption) error {
	for _, c := range models.Categories {
		for _, p := range models.PlatformsFor(c) {
			s, err := NewSimulated(p, opts...)
			if err != nil {
				return err
			}
			if err := r.Register(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulated) Platform() models.Platform { return s.platform }

func (s *Simulated) Search(ctx context.Context, intent models.SearchIntent) ([]models.Offer, error) {
	if intent.Category != s.category {
		return nil, fmt.Errorf("%s does not serve category %s", s.platform, intent.Category)
	}
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(seedFor(s.platform, intent)))
	item := intent.Query
	link := s.deepLink(intent.Query)

	var offers []models.Offer
	switch s.category {
	case models.CategoryFood:
		offers = s.food(r, item, link)
	case models.CategoryProduct:
		offers = s.product(r, item, link)
	case models.CategoryRide:
		offers = s.ride(r, link)
	case models.CategoryHotel:
		offers = s.hotel(r, link)
	}
	return offers, nil
}

func (s *Simulated) food(r *rand.Rand, item, link string) []models.Offer {
	p := foodProfiles[s.platform]
	base := uniform(r, p.baseMin, p.baseMax)
	delivery := uniform(r, 0, p.deliveryMax)
	service := models.RoundCents(base * p.servicePct)
	tax := models.RoundCents((base + delivery + service) * p.taxPct)

	return []models.Offer{s.offer(
		fmt.Sprintf("%s - %s", item, p.label), base,
		models.FeeBreakdown{DeliveryFee: delivery, ServiceFee: service, Tax: tax},
		models.Float64Ptr(rating(r, p.ratingMin, p.ratingMax)),
		models.IntPtr(randInt(r, p.countMin, p.countMax)),
		models.IntPtr(randInt(r, p.timeMin, p.timeMax)),
		link, nil,
	)}
}

func (s *Simulated) product(r *rand.Rand, item, link string) []models.Offer {
	p := productProfiles[s.platform]
	price := uniform(r, p.priceMin, p.priceMax)
	shipping := p.shipping[r.Intn(len(p.shipping))]
	tax := models.RoundCents(price * p.taxPct)
	days := p.deliveryDays[r.Intn(len(p.deliveryDays))]

	return []models.Offer{s.offer(
		fmt.Sprintf("%s - %s", item, p.label), price,
		models.FeeBreakdown{DeliveryFee: shipping, Tax: tax},
		models.Float64Ptr(rating(r, p.ratingMin, p.ratingMax)),
		models.IntPtr(randInt(r, p.countMin, p.countMax)),
		models.IntPtr(days*24*60),
		link, nil,
	)}
}

func (s *Simulated) ride(r *rand.Rand, link string) []models.Offer {
	p := rideProfiles[s.platform]
	surge := models.RoundCents(1 + r.Float64()*(p.surgeMax-1))

	offers := make([]models.Offer, 0, len(p.tiers))
	for _, tier := range p.tiers {
		base := models.RoundCents((p.fareMin + r.Float64()*(p.fareMax-p.fareMin)) * tier.multiplier * surge)
		tax := models.RoundCents(base * p.taxPct)
		offers = append(offers, s.offer(
			tier.name, base,
			models.FeeBreakdown{ServiceFee: p.bookingFee, Tax: tax},
			models.Float64Ptr(models.RoundCents(p.ratingMin+r.Float64()*(p.ratingMax-p.ratingMin))),
			nil,
			models.IntPtr(randInt(r, p.etaMin, p.etaMax)),
			link, models.Float64Ptr(surge),
		))
	}
	return offers
}

func (s *Simulated) hotel(r *rand.Rand, link string) []models.Offer {
	p := hotelProfiles[s.platform]
	nightly := uniform(r, p.nightlyMin, p.nightlyMax)
	tax := models.RoundCents(nightly * p.taxPct)

	extra := models.RoundCents(nightly * p.servicePct)
	if len(p.resortFees) > 0 {
		extra += p.resortFees[r.Intn(len(p.resortFees))]
	}
	if p.cleaningMax > 0 {
		extra += uniform(r, p.cleaningMin, p.cleaningMax)
	}

	score := rating(r, p.ratingMin, p.ratingMax)
	if p.tenPointScale {
		score = models.RoundCents(score / 2)
	}
	name := fmt.Sprintf("%s %s - %s",
		hotelAdjectives[r.Intn(len(hotelAdjectives))], hotelKinds[r.Intn(len(hotelKinds))], p.label)

	return []models.Offer{s.offer(
		name, nightly,
		models.FeeBreakdown{ServiceFee: models.RoundCents(extra), Tax: tax},
		models.Float64Ptr(score),
		models.IntPtr(randInt(r, p.countMin, p.countMax)),
		nil, link, nil,
	)}
}

func (s *Simulated) offer(name string, base float64, fees models.FeeBreakdown, rating *float64, count, minutes *int, link string, surge *float64) models.Offer {
	return models.Offer{
		Platform:        s.platform,
		Category:        s.category,
		ItemName:        name,
		BasePrice:       base,
		Fees:            fees,
		Rating:          rating,
		RatingCount:     count,
		TimeMinutes:     minutes,
		DeepLink:        link,
		DealsApplied:    []string{},
		SurgeMultiplier: surge,
	}.Reconcile()
}

func (s *Simulated) deepLink(query string) string {
	base := deepLinkBase[s.platform]
	if base == "" {
		return ""
	}
	return base + "?q=" + url.QueryEscape(query)
}

// seedFor hashes everything that distinguishes one search from another.
func seedFor(p models.Platform, intent models.SearchIntent) int64 {
	h := fnv.New64a()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write(string(p))
	write(intent.NormalizedQuery())
	write(intent.Constraints.Location)
	if mp := intent.Constraints.MaxPrice; mp != nil {
		write(strconv.FormatFloat(*mp, 'f', -1, 64))
	}
	if mt := intent.Constraints.MaxTimeMinutes; mt != nil {
		write(strconv.Itoa(*mt))
	}
	return int64(h.Sum64())
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return models.RoundCents(lo + r.Float64()*(hi-lo))
}

// rating draws to one decimal place like the platforms display it.
func rating(r *rand.Rand, lo, hi float64) float64 {
	v := lo + r.Float64()*(hi-lo)
	return float64(int(v*10+0.5)) / 10
}

func randInt(r *rand.Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}
