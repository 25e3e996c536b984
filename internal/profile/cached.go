package profile

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"smart-dealer/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const (
	CacheKeyPrefix  = "user:profile:"
	DefaultCacheTTL = 10 * time.Minute
)

// CachedStore reads through redis in front of another Store. Redis failures
// are logged and fall back to the inner store.
type CachedStore struct {
	inner  Store
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		inner:  inner,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.ForComponent(log, "profile-cache"),
	}
}

func (s *CachedStore) Get(ctx context.Context, userID string) (Profile, error) {
	key := CacheKeyPrefix + userID

	val, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Profile
		if jsonErr := json.Unmarshal(val, &p); jsonErr == nil {
			return p, nil
		}
		s.logger.Warn("discarding undecodable cached profile", map[string]interface{}{"userId": userID})
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("profile cache read failed", map[string]interface{}{"userId": userID, "error": err.Error()})
	}

	p, err := s.inner.Get(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	s.store(ctx, p)
	return p, nil
}

// Put writes through to the inner store, then drops the cached copy.
func (s *CachedStore) Put(ctx context.Context, p Profile) error {
	if err := s.inner.Put(ctx, p); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, CacheKeyPrefix+p.UserID).Err(); err != nil {
		s.logger.Warn("profile cache invalidation failed", map[string]interface{}{"userId": p.UserID, "error": err.Error()})
	}
	return nil
}

func (s *CachedStore) store(ctx context.Context, p Profile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, CacheKeyPrefix+p.UserID, data, s.ttl).Err(); err != nil {
		s.logger.Warn("profile cache write failed", map[string]interface{}{"userId": p.UserID, "error": err.Error()})
	}
}
