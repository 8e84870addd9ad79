package cache

import (
	"context"
	"encoding/json"
	"time"

	"pharmapos/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisProductCache{client: client, ttl: ttl}
}

func (c *RedisProductCache) Get(ctx context.Context, storeID uuid.UUID) ([]dto.ProductResponse, bool, error) {
	val, err := c.client.Get(ctx, productsKey(storeID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []dto.ProductResponse
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, storeID uuid.UUID, products []dto.ProductResponse) error {
	if products == nil {
		products = []dto.ProductResponse{}
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productsKey(storeID), payload, c.ttl).Err()
}

func (c *RedisProductCache) Invalidate(ctx context.Context, storeID uuid.UUID) error {
	return c.client.Del(ctx, productsKey(storeID)).Err()
}
