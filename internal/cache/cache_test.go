package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func createTestOffers() []models.Offer {
	return []models.Offer{
		{
			Platform:     models.PlatformDoorDash,
			Category:     models.CategoryFood,
			ItemName:     "margherita pizza",
			BasePrice:    12.5,
			Fees:         models.FeeBreakdown{DeliveryFee: 2.99, ServiceFee: 1.5, Tax: 1.02},
			TotalPrice:   18.01,
			Rating:       models.Float64Ptr(4.6),
			RatingCount:  models.IntPtr(812),
			TimeMinutes:  models.IntPtr(28),
			DeepLink:     "https://doordash.com/store/example",
			DealsApplied: []string{},
		},
		{
			Platform:     models.PlatformDoorDash,
			Category:     models.CategoryFood,
			ItemName:     "pepperoni pizza",
			BasePrice:    14,
			TotalPrice:   14,
			DeepLink:     "https://doordash.com/store/example-2",
			DealsApplied: []string{},
		},
	}
}

func createTestIntent(t *testing.T, query string, c models.Constraints) models.SearchIntent {
	t.Helper()
	intent, err := models.NewSearchIntent(models.CategoryFood, query, c, "")
	require.NoError(t, err)
	return intent
}

// ==========================
// Key
// ==========================

func TestKey_Deterministic(t *testing.T) {
	maxPrice := 20.0
	a := createTestIntent(t, "Pepperoni  Pizza", models.Constraints{MaxPrice: &maxPrice, Location: "Austin"})
	b := createTestIntent(t, "pepperoni pizza", models.Constraints{MaxPrice: &maxPrice, Location: " austin ", MaxResults: 5})

	assert.Equal(t, Key(models.PlatformDoorDash, a), Key(models.PlatformDoorDash, b))
	assert.NotEqual(t, Key(models.PlatformDoorDash, a), Key(models.PlatformGrubhub, a))

	other := 25.0
	c := createTestIntent(t, "pepperoni pizza", models.Constraints{MaxPrice: &other, Location: "Austin"})
	assert.NotEqual(t, Key(models.PlatformDoorDash, a), Key(models.PlatformDoorDash, c))

	assert.Contains(t, Key(models.PlatformDoorDash, a), KeyPrefix+"doordash:")
}

// ==========================
// Redis store
// ==========================

func TestRedisStore_RoundTripAndExpiry(t *testing.T) {
	mr, rdb := setupRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()
	offers := createTestOffers()

	require.NoError(t, store.Set(ctx, "k", offers, DefaultTTL))

	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, offers, got)

	mr.FastForward(DefaultTTL + time.Second)

	got, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRedisStore_EmptyResultIsCached(t *testing.T) {
	_, rdb := setupRedis(t)
	store := NewRedisStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "empty", nil, time.Minute))
	got, found, err := store.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	mr, rdb := setupRedis(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	_, found, err := NewRedisStore(rdb).Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, found)
}

func TestOfferCache_RedisUnavailableDegradesToMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("k").SetErr(errors.New("dial tcp: connection refused"))
	mock.Regexp().ExpectSet("k", `.*`, DefaultTTL).SetErr(errors.New("dial tcp: connection refused"))

	c := New(NewRedisStore(rdb), DefaultTTL, logger.NewTestLogger(t))

	offers, found := c.Lookup(context.Background(), "k")
	assert.False(t, found)
	assert.Nil(t, offers)

	assert.NotPanics(t, func() {
		c.Save(context.Background(), "k", createTestOffers())
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Memory store
// ==========================

func TestMemoryStore_RoundTripAndExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()
	offers := createTestOffers()

	require.NoError(t, store.Set(ctx, "k", offers, DefaultTTL))

	now = now.Add(59 * time.Second)
	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, offers, got)

	now = now.Add(time.Second)
	got, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	offers := createTestOffers()
	require.NoError(t, store.Set(ctx, "k", offers, time.Minute))

	offers[0].ItemName = "changed after set"
	got, _, _ := store.Get(ctx, "k")
	got[0].DealsApplied = append(got[0].DealsApplied, "mutated")

	again, _, _ := store.Get(ctx, "k")
	assert.Equal(t, "margherita pizza", again[0].ItemName)
	assert.Empty(t, again[0].DealsApplied)
}

func TestMemoryStore_Purge(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "short", nil, time.Second))
	require.NoError(t, store.Set(ctx, "long", nil, time.Hour))

	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, store.Purge())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	offers := createTestOffers()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k-%d", i%4)
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, key, offers, time.Minute)
				got, found, err := store.Get(ctx, key)
				if assert.NoError(t, err) && found {
					assert.Len(t, got, len(offers))
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, store.Len())
}

// ==========================
// OfferCache
// ==========================

func TestOfferCache_NilStoreIsPassThrough(t *testing.T) {
	c := New(nil, 0, logger.NewNoOpLogger())
	assert.Equal(t, DefaultTTL, c.TTL())

	c.Save(context.Background(), "k", createTestOffers())
	_, found := c.Lookup(context.Background(), "k")
	assert.False(t, found)
}

func TestOfferCache_HitAndMiss(t *testing.T) {
	c := New(NewMemoryStore(), time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()

	_, found := c.Lookup(ctx, "k")
	assert.False(t, found)

	c.Save(ctx, "k", createTestOffers())
	got, found := c.Lookup(ctx, "k")
	assert.True(t, found)
	assert.Len(t, got, 2)
}
