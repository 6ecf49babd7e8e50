package cache

import (
	"context"
	"time"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

type RedisStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusCache(rdb *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb, ttl: ttl}
}

func (r *RedisStatusCache) SetStatus(ctx context.Context, orderID, status string) error {
	return r.rdb.Set(ctx, "order:status:"+orderID, status, r.ttl).Err()
}

func (r *RedisStatusCache) GetStatus(ctx context.Context, orderID string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, "order:status:"+orderID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ usecase.StatusCache = (*RedisStatusCache)(nil)
