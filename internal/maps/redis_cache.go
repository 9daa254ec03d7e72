package maps

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores lookup results as JSON strings in Redis.
type RedisCache struct {
	redis *redis.Client
}

func NewRedisCache(redis *redis.Client) *RedisCache {
	return &RedisCache{redis: redis}
}

func (s *RedisCache) Get(ctx context.Context, key string) ([]PlaceCandidate, bool, error) {
	val, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var places []PlaceCandidate
	if err := json.Unmarshal(val, &places); err != nil {
		return nil, false, err
	}
	return places, true, nil
}

func (s *RedisCache) Set(ctx context.Context, key string, places []PlaceCandidate, ttl time.Duration) error {
	b, err := json.Marshal(places)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, b, ttl).Err()
}
