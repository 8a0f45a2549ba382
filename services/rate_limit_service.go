package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// RateLimitDecision is the result of consuming one slot for a client.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time until the window resets. Zero when allowed.
	RetryAfter time.Duration
}

// RateLimiterInterface defines the contract for rate limiting operations.
type RateLimiterInterface interface {
	CheckAndConsume(ctx context.Context, identity string) RateLimitDecision
}

// fixedWindowScript increments the counter and arms the window on the first hit.
// A counter left without an expiry is re-armed so it can never block forever.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RateLimitService limits contact submissions per client identity with a
// fixed window counter in Redis. It implements the RateLimiterInterface.
type RateLimitService struct {
	redis       redis.Scripter
	keyPrefix   string
	limit       int
	window      time.Duration
	failClosed  bool
	storeErrors prometheus.Counter
}

func NewRateLimitService(rdb redis.Scripter, cfg config.RateLimitConfig) *RateLimitService {
	return NewRateLimitServiceWithRegistry(rdb, cfg, prometheus.DefaultRegisterer)
}

func NewRateLimitServiceWithRegistry(rdb redis.Scripter, cfg config.RateLimitConfig, reg prometheus.Registerer) *RateLimitService {
	storeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smartconnect_rate_limit_store_errors_total",
		Help: "Rate limit checks that could not reach the counter store",
	})
	reg.MustRegister(storeErrors)

	return &RateLimitService{
		redis:       rdb,
		keyPrefix:   "contact:rl:",
		limit:       cfg.MaxSubmissions,
		window:      cfg.Window,
		failClosed:  cfg.FailClosed,
		storeErrors: storeErrors,
	}
}

// CheckAndConsume counts one submission for identity and reports whether it may proceed.
// When Redis is unavailable the configured failure mode decides.
func (s *RateLimitService) CheckAndConsume(ctx context.Context, identity string) RateLimitDecision {
	count, ttl, err := s.consume(ctx, identity)
	if err != nil {
		s.storeErrors.Inc()
		logger.GetLogger().Errorw("Rate limit store unavailable",
			"error", err,
			"identity", identity,
			"fail_closed", s.failClosed)
		if s.failClosed {
			return RateLimitDecision{Allowed: false, RetryAfter: s.window}
		}
		return RateLimitDecision{Allowed: true, Remaining: s.limit}
	}

	if count > int64(s.limit) {
		return RateLimitDecision{Allowed: false, RetryAfter: ttl}
	}
	return RateLimitDecision{Allowed: true, Remaining: s.limit - int(count)}
}

func (s *RateLimitService) consume(ctx context.Context, identity string) (int64, time.Duration, error) {
	windowMillis := s.window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}

	vals, err := fixedWindowScript.Run(ctx, s.redis, []string{s.keyPrefix + identity}, windowMillis).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script reply: %v", vals)
	}

	ttl := time.Duration(vals[1]) * time.Millisecond
	if ttl <= 0 {
		ttl = s.window
	}
	return vals[0], ttl, nil
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
