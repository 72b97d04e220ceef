package middleware

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var phoneRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// PhoneLimiter caps OTP requests per phone number across instances.
type PhoneLimiter interface {
	Allow(ctx context.Context, phone string) (allowed bool, retryAfterSeconds int, err error)
}

// NoopPhoneLimiter allows everything.
type NoopPhoneLimiter struct{}

func (NoopPhoneLimiter) Allow(context.Context, string) (bool, int, error) { return true, 0, nil }

// RedisPhoneLimiter is a fixed-window counter in Redis.
type RedisPhoneLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisPhoneLimiter creates a limiter allowing limit requests per window per phone.
func NewRedisPhoneLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisPhoneLimiter {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = "gsmwallet:rate_limit"
	}
	return &RedisPhoneLimiter{
		client: client,
		prefix: trimmedPrefix,
		limit:  limit,
		window: window,
	}
}

// NewPhoneLimiter connects to Redis when redisURL and limitPerHour are set, otherwise returns NoopPhoneLimiter.
func NewPhoneLimiter(redisURL, prefix string, limitPerHour int) (PhoneLimiter, func() error, error) {
	if strings.TrimSpace(redisURL) == "" || limitPerHour <= 0 {
		return NoopPhoneLimiter{}, func() error { return nil }, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	return NewRedisPhoneLimiter(client, prefix, limitPerHour, time.Hour), client.Close, nil
}

func (r *RedisPhoneLimiter) Allow(ctx context.Context, phone string) (bool, int, error) {
	if r == nil || r.client == nil || r.limit <= 0 || r.window <= 0 {
		return true, 0, nil
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return true, 0, nil
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:otp_request:%s", r.prefix, GetPhoneKey(phone))
	rawResult, err := phoneRateLimitScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(count) <= r.limit, retryAfter, nil
}
