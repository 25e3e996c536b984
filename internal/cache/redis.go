package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps offers as JSON strings with a Redis expiry.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]models.Offer, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewCacheUnavailableError(err)
	}

	var offers []models.Offer
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, false, fmt.Errorf("decode cached offers: %w", err)
	}
	return offers, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, offers []models.Offer, ttl time.Duration) error {
	if offers == nil {
		offers = []models.Offer{}
	}
	data, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	return nil
}
