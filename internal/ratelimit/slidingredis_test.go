package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client, Prefix: "test:"}, mr
}

func TestLimiterAllowsUpToMax(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "voucher:user:1", 2*time.Second, 2)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected event %d within limit", i)
		}
		if remaining != 1-i {
			t.Fatalf("event %d: unexpected remaining %d", i, remaining)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "voucher:user:1", 2*time.Second, 2)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed || remaining != 0 {
		t.Fatalf("expected rejection with remaining 0, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 3; i++ {
		limiter.Allow(ctx, "voucher:user:2", window, 2)
	}

	mr.FastForward(window)

	allowed, _, _, err := limiter.Allow(ctx, "voucher:user:2", window, 2)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatal("expected event after window to be allowed")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	if allowed, _, _, _ := limiter.Allow(ctx, "voucher:user:a", time.Second, 1); !allowed {
		t.Fatal("expected first key within limit")
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "voucher:user:a", time.Second, 1); allowed {
		t.Fatal("expected first key exhausted")
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "voucher:user:b", time.Second, 1); !allowed {
		t.Fatal("expected second key unaffected")
	}
}

func TestLimiterDisabledWithoutClient(t *testing.T) {
	limiter := Limiter{}
	allowed, remaining, _, err := limiter.Allow(context.Background(), "any", time.Second, 5)
	if err != nil || !allowed || remaining != 5 {
		t.Fatalf("expected pass-through, got allowed=%v remaining=%d err=%v", allowed, remaining, err)
	}
}
