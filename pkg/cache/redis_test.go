package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisGetSetWithTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	c := NewRedis(client, "test:", time.Minute)

	if _, ok, err := c.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("expected hit, got %q ok=%v err=%v", got, ok, err)
	}
	if !mr.Exists("test:k") {
		t.Fatal("expected key to be stored under prefix")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected key to expire")
	}
}

func TestRedisResetOnlyTouchesPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	c := NewRedis(client, "test:", 0)

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	mr.Set("other", "keep")

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists("test:a") || mr.Exists("test:b") {
		t.Fatal("expected prefixed keys removed")
	}
	if !mr.Exists("other") {
		t.Fatal("expected unrelated key to survive")
	}
}
