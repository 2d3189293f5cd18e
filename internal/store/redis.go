package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptTTL = 15 * time.Minute

// RedisStore keeps short-lived counters: rate limit windows, IP blocks and
// failed login attempts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client, such as one pointed at a
// test server.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// loginAttemptsKey returns the key for an email's failed login counter.
func loginAttemptsKey(email string) string {
	return fmt.Sprintf("login:failures:%s", strings.ToLower(email))
}

// LoginAllowed reports whether email has fewer than limit recent failed logins.
func (s *RedisStore) LoginAllowed(ctx context.Context, email string, limit int) (bool, error) {
	count, err := s.client.Get(ctx, loginAttemptsKey(email)).Int()
	if err != nil && err != redis.Nil {
		return false, err
	}
	return count < limit, nil
}

// RecordLoginFailure increments the failed login counter for email.
func (s *RedisStore) RecordLoginFailure(ctx context.Context, email string) error {
	key := loginAttemptsKey(email)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, loginAttemptTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// ResetLoginFailures clears the failed login counter after a successful login.
func (s *RedisStore) ResetLoginFailures(ctx context.Context, email string) error {
	return s.client.Del(ctx, loginAttemptsKey(email)).Err()
}

// HitRateLimit records a hit on key and returns how many hits preceded it
// within the sliding window.
func (s *RedisStore) HitRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	bucket := "ratelimit:" + key

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, bucket, "-inf", strconv.FormatInt(now.Add(-window).UnixMilli(), 10))
	count := pipe.ZCard(ctx, bucket)
	pipe.ZAdd(ctx, bucket, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count.Val(), nil
}

// RecordViolation counts a rate limit violation by ip over the last hour.
func (s *RedisStore) RecordViolation(ctx context.Context, ip string) (int64, error) {
	key := "violations:ip:" + ip

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// IsBlocked reports whether ip is temporarily blocked.
func (s *RedisStore) IsBlocked(ctx context.Context, ip string) (bool, error) {
	n, err := s.client.Exists(ctx, "blocked:ip:"+ip).Result()
	return n > 0, err
}

// BlockIP blocks ip for d.
func (s *RedisStore) BlockIP(ctx context.Context, ip string, d time.Duration, reason string) error {
	return s.client.Set(ctx, "blocked:ip:"+ip, reason, d).Err()
}
