package ranking

import (
	"errors"
	"math/rand"
	"testing"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func offer(platform models.Platform, base, fee float64, rating *float64, minutes *int) models.Offer {
	o := models.Offer{
		Platform:     platform,
		ItemName:     string(platform) + " item",
		BasePrice:    base,
		Fees:         models.FeeBreakdown{DeliveryFee: fee},
		Rating:       rating,
		TimeMinutes:  minutes,
		DealsApplied: []string{},
	}
	return o.Reconcile()
}

func platformsOf(results []models.RankedResult) []models.Platform {
	out := make([]models.Platform, len(results))
	for i, r := range results {
		out[i] = r.Platform
	}
	return out
}

func assertWellFormed(t *testing.T, results []models.RankedResult) {
	t.Helper()
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		assert.GreaterOrEqual(t, r.ValueScore, 0.0)
		assert.LessOrEqual(t, r.ValueScore, 1.0+1e-12)
		assert.GreaterOrEqual(t, r.SavingsVsMax, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].ValueScore, r.ValueScore)
		}
	}
}

// ==========================
// Core Functionality Tests
// ==========================

// A: $10, no fees, 4.5 stars, 20 min. B: $12 + $2 fee, 4.8 stars, 15 min.
// C: $9 + $1 fee, 3.5 stars, 40 min. Totals are 10, 14 and 10.
//
//	A = .4*1 + .2*.8 + .2*.90 + .1*1  + .1*.5 = 0.890
//	C = .4*1 + .2*0  + .2*.70 + .1*.5 + .1*.5 = 0.640
//	B = .4*0 + .2*1  + .2*.96 + .1*0  + .1*.5 = 0.442
func TestRank_ThreeFoodOffersDefaultWeights(t *testing.T) {
	a := offer(models.PlatformUberEats, 10, 0, models.Float64Ptr(4.5), models.IntPtr(20))
	b := offer(models.PlatformDoorDash, 12, 2, models.Float64Ptr(4.8), models.IntPtr(15))
	c := offer(models.PlatformGrubhub, 9, 1, models.Float64Ptr(3.5), models.IntPtr(40))

	results, err := Rank([]models.Offer{a, b, c}, models.DefaultWeights(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []models.Platform{models.PlatformUberEats, models.PlatformGrubhub, models.PlatformDoorDash}, platformsOf(results))
	assert.InDelta(t, 0.890, results[0].ValueScore, 1e-9)
	assert.InDelta(t, 0.640, results[1].ValueScore, 1e-9)
	assert.InDelta(t, 0.442, results[2].ValueScore, 1e-9)

	assert.InDelta(t, 0.8, results[0].Scores.Time, 1e-9)
	assert.InDelta(t, 0.5, results[1].Scores.Fee, 1e-9)

	assert.Equal(t, 4.0, results[0].SavingsVsMax)
	assert.Equal(t, 4.0, results[1].SavingsVsMax)
	assert.Equal(t, 0.0, results[2].SavingsVsMax)
	assertWellFormed(t, results)
}

func TestRank_IdenticalOffersScoreEqually(t *testing.T) {
	weights := []models.WeightVector{
		models.DefaultWeights(),
		{Price: 1},
		{Time: 0.5, Rating: 0.5},
		{Price: 0.1, Time: 0.1, Rating: 0.1, Fee: 0.1, Preference: 0.6},
	}
	offers := []models.Offer{
		offer(models.PlatformUber, 15, 2.5, models.Float64Ptr(4.7), models.IntPtr(6)),
		offer(models.PlatformLyft, 15, 2.5, models.Float64Ptr(4.7), models.IntPtr(6)),
		offer(models.PlatformTaxi, 15, 2.5, models.Float64Ptr(4.7), models.IntPtr(6)),
	}

	for _, w := range weights {
		results, err := Rank(offers, w, nil)
		require.NoError(t, err)
		for _, r := range results {
			assert.Equal(t, results[0].ValueScore, r.ValueScore)
			assert.Equal(t, 1.0, r.Scores.Price)
			assert.Equal(t, 1.0, r.Scores.Time)
			assert.Equal(t, 1.0, r.Scores.Fee)
		}
		// full tie resolves by platform id
		assert.Equal(t, []models.Platform{models.PlatformLyft, models.PlatformTaxi, models.PlatformUber}, platformsOf(results))
		assertWellFormed(t, results)
	}
}

func TestRank_InvalidWeights(t *testing.T) {
	offers := []models.Offer{offer(models.PlatformUber, 10, 0, nil, nil)}

	tests := []struct {
		name    string
		weights models.WeightVector
	}{
		{"sums to 1.5", models.WeightVector{Price: 0.5, Time: 0.5, Rating: 0.5}},
		{"sums to 0.9", models.WeightVector{Price: 0.4, Time: 0.2, Rating: 0.2, Fee: 0.1}},
		{"negative weight", models.WeightVector{Price: 1.1, Fee: -0.1}},
		{"all zero", models.WeightVector{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := Rank(offers, tt.weights, nil)
			require.Error(t, err)
			assert.Nil(t, results)
			assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
		})
	}

	// an empty offer set does not bypass validation
	_, err := Rank(nil, models.WeightVector{Price: 0.5, Time: 0.5, Rating: 0.5}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestRank_WithinTolerance(t *testing.T) {
	w := models.WeightVector{Price: 0.4 + 5e-7, Time: 0.2, Rating: 0.2, Fee: 0.1, Preference: 0.1}
	_, err := Rank([]models.Offer{offer(models.PlatformUber, 10, 0, nil, nil)}, w, nil)
	assert.NoError(t, err)
}

func TestRank_EmptyInput(t *testing.T) {
	results, err := Rank(nil, models.DefaultWeights(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRank_MissingValues(t *testing.T) {
	fast := offer(models.PlatformUber, 20, 0, models.Float64Ptr(5), models.IntPtr(10))
	slow := offer(models.PlatformLyft, 20, 0, models.Float64Ptr(5), models.IntPtr(30))
	unknown := offer(models.PlatformTaxi, 20, 0, nil, nil)

	results, err := Rank([]models.Offer{unknown, slow, fast}, models.DefaultWeights(), nil)
	require.NoError(t, err)

	byPlatform := map[models.Platform]models.RankedResult{}
	for _, r := range results {
		byPlatform[r.Platform] = r
	}

	assert.Equal(t, 1.0, byPlatform[models.PlatformUber].Scores.Time)
	assert.Equal(t, 0.0, byPlatform[models.PlatformLyft].Scores.Time)
	assert.Equal(t, 0.0, byPlatform[models.PlatformTaxi].Scores.Time, "missing time is the worst observed")
	assert.Equal(t, 0.5, byPlatform[models.PlatformTaxi].Scores.Rating, "missing rating is neutral")
	assert.Equal(t, 1.0, byPlatform[models.PlatformUber].Scores.Rating)
	assert.Equal(t, models.PlatformUber, results[0].Platform)
}

func TestRank_AllTimesMissing(t *testing.T) {
	results, err := Rank([]models.Offer{
		offer(models.PlatformAmazon, 30, 0, nil, nil),
		offer(models.PlatformEbay, 25, 0, nil, nil),
	}, models.DefaultWeights(), nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, 1.0, r.Scores.Time)
	}
	assert.Equal(t, models.PlatformEbay, results[0].Platform)
}

func TestRank_FeeExcludesTaxAndDiscount(t *testing.T) {
	taxed := models.Offer{Platform: models.PlatformBooking, ItemName: "x", BasePrice: 100,
		Fees: models.FeeBreakdown{Tax: 30, Discount: 10}}.Reconcile()
	fee := models.Offer{Platform: models.PlatformExpedia, ItemName: "y", BasePrice: 100,
		Fees: models.FeeBreakdown{ServiceFee: 5}}.Reconcile()

	results, err := Rank([]models.Offer{taxed, fee}, models.WeightVector{Fee: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformBooking, results[0].Platform)
	assert.Equal(t, 1.0, results[0].Scores.Fee)
	assert.Equal(t, 0.0, results[1].Scores.Fee)
}

func TestRank_UserPreference(t *testing.T) {
	offers := []models.Offer{
		offer(models.PlatformUber, 10, 0, nil, nil),
		offer(models.PlatformLyft, 10, 0, nil, nil),
		offer(models.PlatformTaxi, 10, 0, nil, nil),
	}
	prefs := Preferences{models.PlatformTaxi: 1, models.PlatformUber: 0, models.PlatformLyft: 7}

	results, err := Rank(offers, models.DefaultWeights(), prefs)
	require.NoError(t, err)

	byPlatform := map[models.Platform]float64{}
	for _, r := range results {
		byPlatform[r.Platform] = r.Scores.Preference
	}
	assert.Equal(t, 1.0, byPlatform[models.PlatformTaxi])
	assert.Equal(t, 0.0, byPlatform[models.PlatformUber])
	assert.Equal(t, 1.0, byPlatform[models.PlatformLyft], "out of range preference is clamped")

	noPrefs, err := Rank(offers, models.DefaultWeights(), Preferences{})
	require.NoError(t, err)
	for _, r := range noPrefs {
		assert.Equal(t, NeutralPreference, r.Scores.Preference)
	}
}

func TestRank_ScoreTieBreaksOnTotalPrice(t *testing.T) {
	// rating only: both score the same, cheaper first
	pricey := offer(models.PlatformAmazon, 50, 0, models.Float64Ptr(4), nil)
	cheap := offer(models.PlatformTarget, 40, 0, models.Float64Ptr(4), nil)

	results, err := Rank([]models.Offer{pricey, cheap}, models.WeightVector{Rating: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, results[0].ValueScore, results[1].ValueScore)
	assert.Equal(t, models.PlatformTarget, results[0].Platform)
	assert.Equal(t, 10.0, results[0].SavingsVsMax)
}

func TestRank_PureAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	platforms := models.PlatformsFor(models.CategoryProduct)

	offers := make([]models.Offer, 40)
	for i := range offers {
		var minutes *int
		if rng.Intn(4) > 0 {
			minutes = models.IntPtr(1 + rng.Intn(7*24*60))
		}
		var rating *float64
		if rng.Intn(3) > 0 {
			rating = models.Float64Ptr(float64(rng.Intn(51)) / 10)
		}
		offers[i] = offer(platforms[rng.Intn(len(platforms))], float64(rng.Intn(50000))/100, float64(rng.Intn(1000))/100, rating, minutes)
	}
	snapshot := make([]models.Offer, len(offers))
	for i, o := range offers {
		snapshot[i] = o.Clone()
	}

	first, err := Rank(offers, models.DefaultWeights(), nil)
	require.NoError(t, err)
	second, err := Rank(offers, models.DefaultWeights(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, offers, "input must not be mutated")
	assertWellFormed(t, first)
	assert.Len(t, first, len(offers))
}

func TestEngine_LogsAndDelegates(t *testing.T) {
	engine := NewEngine(logger.NewTestLogger(t))

	results, err := engine.Rank([]models.Offer{offer(models.PlatformUber, 10, 0, nil, nil)}, models.DefaultWeights(), nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = engine.Rank(nil, models.WeightVector{Price: 2}, nil)
	assert.Error(t, err)
}
