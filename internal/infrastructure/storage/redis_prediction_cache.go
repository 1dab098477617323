package storage

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
)

const keyPrefix = "cvbp:prediction:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisPredictionCache хранит результаты в Redis; маски лежат как несжатый RLE
type RedisPredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPredictionCache создаёт клиента, соединение проверяется через Ping
func NewRedisPredictionCache(addr, password string, db int, ttl time.Duration) *RedisPredictionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisPredictionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisPredictionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPredictionCache) GetClassifications(ctx context.Context, key string) ([]entity.Classification, bool, error) {
	var result []entity.Classification
	ok, err := c.get(ctx, key, &result)
	return result, ok, err
}

func (c *RedisPredictionCache) SetClassifications(ctx context.Context, key string, result []entity.Classification) error {
	return c.set(ctx, key, result)
}

func (c *RedisPredictionCache) GetDetections(ctx context.Context, key string) ([]entity.Detection, bool, error) {
	var result []entity.Detection
	ok, err := c.get(ctx, key, &result)
	return result, ok, err
}

func (c *RedisPredictionCache) SetDetections(ctx context.Context, key string, result []entity.Detection) error {
	return c.set(ctx, key, result)
}

func (c *RedisPredictionCache) Close() error {
	return c.client.Close()
}

func (c *RedisPredictionCache) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisPredictionCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

var _ port.PredictionCache = (*RedisPredictionCache)(nil)
