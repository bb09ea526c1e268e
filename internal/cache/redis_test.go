package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisStore_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	s := NewRedisStore[string](client, "txview:", time.Minute)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "k"); err == nil || ok {
		t.Errorf("Get() = %v, %v; want a connection error", ok, err)
	}
	if err := s.Set(ctx, "k", "v"); err == nil {
		t.Error("Set() should fail without a server")
	}
	if err := s.Delete(ctx, "k"); err == nil {
		t.Error("Delete() should fail without a server")
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("TXVIEW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TXVIEW_TEST_REDIS_ADDR not set, skipping redis test")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer client.Close()

	type snapshot struct {
		Names []string `json:"names"`
	}
	s := NewRedisStore[snapshot](client, "txview:test:", time.Minute)
	t.Cleanup(func() { _ = s.Delete(context.Background(), "snap") })

	if _, ok, err := s.Get(ctx, "snap"); err != nil || ok {
		t.Fatalf("Get on missing key = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "snap", snapshot{Names: []string{"Alice"}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "snap")
	if err != nil || !ok || len(got.Names) != 1 || got.Names[0] != "Alice" {
		t.Fatalf("Get() = %+v, %v, %v", got, ok, err)
	}
}
