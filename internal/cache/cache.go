// Package cache memoizes platform adapter results for a short TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/common/metrics"
	"smart-dealer/internal/models"
)

// DefaultTTL is how long adapter results stay servable.
const DefaultTTL = 60 * time.Second

// KeyPrefix namespaces offer entries in a shared store.
const KeyPrefix = "dealer:offers:"

// Store is the get/set-with-ttl capability the pipeline depends on.
// A missing or expired entry is reported as found == false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (offers []models.Offer, found bool, err error)
	Set(ctx context.Context, key string, offers []models.Offer, ttl time.Duration) error
}

// Key derives a deterministic cache key from the platform, the normalized
// query and the constraints that change what a platform returns.
func Key(platform models.Platform, intent models.SearchIntent) string {
	parts := []string{
		string(platform),
		intent.NormalizedQuery(),
		strings.ToLower(strings.TrimSpace(intent.Constraints.Location)),
	}
	if p := intent.Constraints.MaxPrice; p != nil {
		parts = append(parts, "price<="+strconv.FormatFloat(*p, 'f', -1, 64))
	} else {
		parts = append(parts, "price<=*")
	}
	if m := intent.Constraints.MaxTimeMinutes; m != nil {
		parts = append(parts, "time<="+strconv.Itoa(*m))
	} else {
		parts = append(parts, "time<=*")
	}

	raw, _ := json.Marshal(parts)
	sum := sha256.Sum256(raw)
	return KeyPrefix + string(platform) + ":" + hex.EncodeToString(sum[:16])
}

// OfferCache wraps a Store so that store failures degrade to misses.
// A nil store turns every lookup into a miss.
type OfferCache struct {
	store  Store
	ttl    time.Duration
	logger logger.Logger
}

func New(store Store, ttl time.Duration, log logger.Logger) *OfferCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &OfferCache{
		store:  store,
		ttl:    ttl,
		logger: logger.ForComponent(log, "offer-cache"),
	}
}

func (c *OfferCache) TTL() time.Duration { return c.ttl }

// Lookup never fails: store errors are logged and reported as a miss.
func (c *OfferCache) Lookup(ctx context.Context, key string) ([]models.Offer, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}

	offers, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache lookup failed, treating as miss", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	case !found:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return offers, true
	}
}

// Save stores offers under key; failures are logged and dropped.
func (c *OfferCache) Save(ctx context.Context, key string, offers []models.Offer) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, offers, c.ttl); err != nil {
		c.logger.Warn("cache store failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func cloneOffers(in []models.Offer) []models.Offer {
	if in == nil {
		return nil
	}
	out := make([]models.Offer, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}
