package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestLimiter creates a Limiter against local Redis and flushes leftover
// test keys. Tests skip when Redis is unavailable.
func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	cleanup := func() {
		for _, pattern := range []string{"rl:typesig:test_*", "rl:typechk:test_*"} {
			iter := client.Scan(ctx, 0, pattern, 100).Iterator()
			for iter.Next(ctx) {
				client.Del(ctx, iter.Val())
			}
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewLimiter(client)
}

func TestAllowWithinLimit(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:typesig:", Limit: 5, Window: 10 * time.Second}

	for i := 0; i < 5; i++ {
		allowed, err := l.Allow(ctx, "test_within", rule)
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
}

func TestAllowBlocksOverLimit(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:typesig:", Limit: 3, Window: 10 * time.Second}

	for i := 0; i < 3; i++ {
		if allowed, _ := l.Allow(ctx, "test_over", rule); !allowed {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	allowed, err := l.Allow(ctx, "test_over", rule)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if allowed {
		t.Error("expected request over limit to be blocked")
	}
}

func TestRemaining(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	rule := Rule{Key: "rl:typechk:", Limit: 10, Window: time.Minute}

	remaining, err := l.Remaining(ctx, "test_rem", rule)
	if err != nil {
		t.Fatalf("Remaining() error: %v", err)
	}
	if remaining != 10 {
		t.Errorf("expected full limit before first request, got %d", remaining)
	}

	l.Allow(ctx, "test_rem", rule)
	l.Allow(ctx, "test_rem", rule)

	remaining, _ = l.Remaining(ctx, "test_rem", rule)
	if remaining != 8 {
		t.Errorf("expected 8 remaining after 2 requests, got %d", remaining)
	}
}
