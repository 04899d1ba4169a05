package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

func sample() *domain.Resolved {
	return &domain.Resolved{
		LinkID:         "l1",
		DestinationURL: "https://dest.example.com",
		RedirectType:   domain.RedirectPermanent,
		Status:         domain.StatusActive,
	}
}

func exercise(t *testing.T, c ports.LinkCache, flush func()) {
	t.Helper()
	ctx := context.Background()
	key := "go.example.com/promo"

	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, key, sample())
	flush()
	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit after set")
	}
	if got.DestinationURL != "https://dest.example.com" || got.RedirectType != domain.RedirectPermanent {
		t.Errorf("unexpected value %+v", got)
	}

	c.Delete(ctx, key)
	flush()
	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemory(t *testing.T) {
	c, err := NewMemory(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c, c.Wait)
}

func TestRedis(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	c, err := NewRedis(redis.NewClient(&redis.Options{Addr: s.Addr()}), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c, func() {})

	c.Set(context.Background(), "k", sample())
	s.FastForward(2 * time.Minute)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestNewSelectsDriver(t *testing.T) {
	c, err := New(&config.Config{CacheDriver: "none"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(Noop); !ok {
		t.Errorf("expected Noop, got %T", c)
	}

	if _, err := New(&config.Config{CacheDriver: "memcached"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
