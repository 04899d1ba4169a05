package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

const redisPrefix = "loopy:link:"

// Redis shares resolutions between server replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) (*Redis, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (c *Redis) Get(ctx context.Context, key string) (*domain.Resolved, bool) {
	raw, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("Redis cache get failed")
		}
		return nil, false
	}
	var r domain.Resolved
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	return &r, true
}

func (c *Redis) Set(ctx context.Context, key string, r *domain.Resolved) {
	raw, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisPrefix+key, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache set failed")
	}
}

func (c *Redis) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, redisPrefix+key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis cache delete failed")
	}
}

func (c *Redis) Close() error {
	return c.client.Close()
}

var _ ports.LinkCache = (*Redis)(nil)
