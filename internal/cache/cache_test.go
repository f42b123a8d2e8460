package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func testClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := c.Get(ctx, "k1")
	if err != nil || v != "v1" {
		t.Fatalf("Get: (%q, %v)", v, err)
	}

	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestMemoryClient(t *testing.T) {
	testClient(t, NewMemory(Config{Prefix: "sg:", DefaultTTL: time.Minute}))
}

func TestRedisClient(t *testing.T) {
	srv := miniredis.RunT(t)
	testClient(t, NewRedis(Config{Addr: srv.Addr(), Prefix: "sg:"}))
}

func TestRedisClient_TTLExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	c := NewRedis(Config{Addr: srv.Addr()})
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	srv.FastForward(2 * time.Second)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after TTL, got %v", err)
	}
}

func TestNew_DispatchesByKind(t *testing.T) {
	if _, ok := New(Config{Kind: "memory"}).(*memoryClient); !ok {
		t.Fatalf("kind=memory should build the in-process client")
	}
	srv := miniredis.RunT(t)
	if _, ok := New(Config{Kind: "redis", Addr: srv.Addr()}).(*redisClient); !ok {
		t.Fatalf("kind=redis should build the redis client")
	}
}
