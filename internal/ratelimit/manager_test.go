package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	base := time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(context.Background(), "login:203.0.113.9", 3, time.Minute, base)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("attempt %d should be allowed", i)
		}
		if result.Remaining != 3-i-1 {
			t.Fatalf("attempt %d remaining %d", i, result.Remaining)
		}
	}

	result, err := limiter.Allow(context.Background(), "login:203.0.113.9", 3, time.Minute, base)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatal("fourth attempt in the window should be blocked")
	}

	// A new window resets the counter.
	result, err = limiter.Allow(context.Background(), "login:203.0.113.9", 3, time.Minute, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !result.Allowed {
		t.Fatal("new window should allow again")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Now()

	if result, _ := limiter.Allow(context.Background(), "login:a", 1, time.Minute, now); !result.Allowed {
		t.Fatal("first key should be allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "login:a", 1, time.Minute, now); result.Allowed {
		t.Fatal("first key should be exhausted")
	}
	if result, _ := limiter.Allow(context.Background(), "login:b", 1, time.Minute, now); !result.Allowed {
		t.Fatal("second key should be unaffected")
	}
}

func TestManagerZeroLimitDisablesThrottling(t *testing.T) {
	manager := NewManager(Options{Limit: 0}, nil)
	for i := 0; i < 100; i++ {
		result, err := manager.Allow(context.Background(), "login:x")
		if err != nil || !result.Allowed {
			t.Fatalf("attempt %d: allowed=%v err=%v", i, result.Allowed, err)
		}
	}
}

func TestManagerUsesMemoryWithoutRedis(t *testing.T) {
	now := time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)
	manager := NewManager(Options{Limit: 2, Window: time.Minute}, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		result, err := manager.Allow(context.Background(), "login:x")
		if err != nil || !result.Allowed {
			t.Fatalf("attempt %d: allowed=%v err=%v", i, result.Allowed, err)
		}
	}
	result, err := manager.Allow(context.Background(), "login:x")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatal("limit not enforced")
	}
}
