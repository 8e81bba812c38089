package audit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupTestSuppressor(t *testing.T) *Suppressor {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test db: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return NewSuppressor(client)
}

func TestSuppressorAllowsUpToLimit(t *testing.T) {
	s := setupTestSuppressor(t)
	ctx := context.Background()

	for i := 0; i < s.rule.Limit; i++ {
		allowed, err := s.Allow(ctx, 42)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d suppressed, limit is %d", i+1, s.rule.Limit)
		}
	}

	allowed, err := s.Allow(ctx, 42)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if allowed {
		t.Fatal("request over limit was not suppressed")
	}
}

func TestSuppressorIsPerSender(t *testing.T) {
	s := setupTestSuppressor(t)
	ctx := context.Background()

	for i := 0; i < s.rule.Limit+5; i++ {
		s.Allow(ctx, 1)
	}

	allowed, err := s.Allow(ctx, 2)
	if err != nil {
		t.Fatalf("allow other sender: %v", err)
	}
	if !allowed {
		t.Fatal("unrelated sender was suppressed")
	}
}

func TestSuppressorResetsAfterWindow(t *testing.T) {
	s := setupTestSuppressor(t)
	s.rule.Window = 1 * time.Second
	ctx := context.Background()

	for i := 0; i < s.rule.Limit+1; i++ {
		s.Allow(ctx, 7)
	}
	if allowed, _ := s.Allow(ctx, 7); allowed {
		t.Fatal("expected suppression before window expiry")
	}

	time.Sleep(1100 * time.Millisecond)

	allowed, err := s.Allow(ctx, 7)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatal("suppression did not reset after the window expired")
	}
}

func TestSuppressorFailsOpenWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	s := NewSuppressor(client)

	allowed, err := s.Allow(context.Background(), 9)
	if err == nil {
		t.Fatal("expected an error from unreachable redis")
	}
	if !allowed {
		t.Fatal("suppressor did not fail open")
	}
}
