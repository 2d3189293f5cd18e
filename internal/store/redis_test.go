package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisPing(t *testing.T) {
	s, _ := newTestRedis(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t)

	ok, err := s.LoginAllowed(ctx, "ana@example.com", 5)
	if err != nil || !ok {
		t.Fatalf("fresh email: allowed=%v err=%v", ok, err)
	}

	for i := 0; i < 5; i++ {
		if err := s.RecordLoginFailure(ctx, "Ana@Example.com"); err != nil {
			t.Fatal(err)
		}
	}
	ok, err = s.LoginAllowed(ctx, "ana@example.com", 5)
	if err != nil || ok {
		t.Fatalf("after 5 failures: allowed=%v err=%v", ok, err)
	}
	if ttl := mr.TTL(loginAttemptsKey("ana@example.com")); ttl != loginAttemptTTL {
		t.Fatalf("ttl = %v, want %v", ttl, loginAttemptTTL)
	}

	mr.FastForward(loginAttemptTTL)
	ok, err = s.LoginAllowed(ctx, "ana@example.com", 5)
	if err != nil || !ok {
		t.Fatalf("after expiry: allowed=%v err=%v", ok, err)
	}

	s.RecordLoginFailure(ctx, "ana@example.com")
	if err := s.ResetLoginFailures(ctx, "ana@example.com"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists(loginAttemptsKey("ana@example.com")) {
		t.Fatal("counter not cleared")
	}
}

func TestHitRateLimit(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t)

	for want := int64(0); want < 3; want++ {
		got, err := s.HitRateLimit(ctx, "ip:10.0.0.1", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("hit %d returned %d", want+1, got)
		}
	}

	got, err := s.HitRateLimit(ctx, "user:7", time.Minute)
	if err != nil || got != 0 {
		t.Fatalf("separate key: got %d err %v", got, err)
	}

	if ttl := mr.TTL("ratelimit:ip:10.0.0.1"); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}
	mr.FastForward(time.Minute)
	got, err = s.HitRateLimit(ctx, "ip:10.0.0.1", time.Minute)
	if err != nil || got != 0 {
		t.Fatalf("after window: got %d err %v", got, err)
	}
}

func TestViolationsAndBlocks(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t)

	for want := int64(1); want <= 2; want++ {
		n, err := s.RecordViolation(ctx, "10.0.0.2")
		if err != nil || n != want {
			t.Fatalf("violation %d: got %d err %v", want, n, err)
		}
	}

	blocked, err := s.IsBlocked(ctx, "10.0.0.2")
	if err != nil || blocked {
		t.Fatalf("blocked=%v err=%v before BlockIP", blocked, err)
	}
	if err := s.BlockIP(ctx, "10.0.0.2", time.Hour, "rate limit abuse"); err != nil {
		t.Fatal(err)
	}
	blocked, err = s.IsBlocked(ctx, "10.0.0.2")
	if err != nil || !blocked {
		t.Fatalf("blocked=%v err=%v after BlockIP", blocked, err)
	}
	if v, _ := mr.Get("blocked:ip:10.0.0.2"); v != "rate limit abuse" {
		t.Fatalf("block reason = %q", v)
	}

	mr.FastForward(time.Hour)
	blocked, err = s.IsBlocked(ctx, "10.0.0.2")
	if err != nil || blocked {
		t.Fatalf("blocked=%v err=%v after expiry", blocked, err)
	}
}
