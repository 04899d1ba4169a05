// Package cache keeps redirect resolutions close to the redirect handler so a
// hot short link does not hit the database on every click.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

// New picks the cache implementation from config.
func New(cfg *config.Config) (ports.LinkCache, error) {
	switch cfg.CacheDriver {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemory(cfg.CacheTTL)
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		return NewRedis(redis.NewClient(opts), cfg.CacheTTL)
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.CacheDriver)
}

// Memory is an in-process cache backed by ristretto.
type Memory struct {
	client *ristretto.Cache
	ttl    time.Duration
}

func NewMemory(ttl time.Duration) (*Memory, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000, // entries, each Set costs 1
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Dur("ttl", ttl).Msg("Memory link cache initialized")
	return &Memory{client: client, ttl: ttl}, nil
}

func (c *Memory) Get(_ context.Context, key string) (*domain.Resolved, bool) {
	v, ok := c.client.Get(key)
	if !ok {
		return nil, false
	}
	r, ok := v.(domain.Resolved)
	if !ok {
		return nil, false
	}
	return &r, true
}

func (c *Memory) Set(_ context.Context, key string, r *domain.Resolved) {
	c.client.SetWithTTL(key, *r, 1, c.ttl)
}

func (c *Memory) Delete(_ context.Context, key string) {
	c.client.Del(key)
}

// Wait blocks until buffered writes are applied.
func (c *Memory) Wait() {
	c.client.Wait()
}

func (c *Memory) Close() error {
	c.client.Close()
	return nil
}

// Noop disables caching.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Resolved, bool) { return nil, false }
func (Noop) Set(context.Context, string, *domain.Resolved)         {}
func (Noop) Delete(context.Context, string)                        {}
func (Noop) Close() error                                          { return nil }

var (
	_ ports.LinkCache = (*Memory)(nil)
	_ ports.LinkCache = Noop{}
)
