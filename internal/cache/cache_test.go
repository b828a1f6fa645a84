package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestService(t *testing.T, ttl time.Duration) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewServiceWithClient(client, "test:", ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { svc.Close() })
	return svc, mr
}

func TestSetGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	if err := svc.Set(ctx, "digest:doc-1", payload{Name: "nda", Count: 3}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	hit, err := svc.Get(ctx, "digest:doc-1", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hit {
		t.Fatalf("want a hit")
	}
	if got.Name != "nda" || got.Count != 3 {
		t.Errorf("got = %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)

	var got payload
	hit, err := svc.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Errorf("miss reported as hit")
	}
}

func TestInvalidate(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	if err := svc.Set(ctx, "k", payload{Name: "v"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := svc.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	var got payload
	if hit, _ := svc.Get(ctx, "k", &got); hit {
		t.Errorf("value survived invalidation")
	}

	// Invalidating an absent key is fine.
	if err := svc.Invalidate(ctx, "never-set"); err != nil {
		t.Errorf("invalidate absent key: %v", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	svc, mr := newTestService(t, time.Minute)
	ctx := context.Background()

	if err := svc.Set(ctx, "k", payload{Name: "v"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	var got payload
	if hit, _ := svc.Get(ctx, "k", &got); hit {
		t.Errorf("value survived its ttl")
	}
}

func TestKeysAreNamespaced(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewServiceWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "a:", time.Minute, logger)
	b := NewServiceWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "b:", time.Minute, logger)
	defer a.Close()
	defer b.Close()
	ctx := context.Background()

	if err := a.Set(ctx, "k", payload{Name: "from-a"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if hit, _ := b.Get(ctx, "k", &got); hit {
		t.Errorf("prefixes leaked across services")
	}
}

func TestRedisFailureDegradesToMiss(t *testing.T) {
	svc, mr := newTestService(t, time.Minute)
	ctx := context.Background()

	if err := svc.Set(ctx, "k", payload{Name: "v"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.Close()

	var got payload
	hit, err := svc.Get(ctx, "k", &got)
	if err != nil {
		t.Errorf("a broken backend must read as a miss, got %v", err)
	}
	if hit {
		t.Errorf("hit from a closed backend")
	}
}
