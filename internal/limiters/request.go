package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited        = errors.New("request rate limited")
	ErrLimiterUnavailable = errors.New("request limiter unavailable")
)

// RequestConfig configures one fixed-window request budget.
type RequestConfig struct {
	Prefix                   string
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxAttempts              int
}

// RequestLimiter caps how often a flow may be started per identifier and
// per client IP. Each scope (otp, reset, register) gets its own key space.
type RequestLimiter struct {
	redis  redis.UniversalClient
	scope  string
	config RequestConfig
}

func newRequestLimiter(redisClient redis.UniversalClient, scope string, cfg RequestConfig) *RequestLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &RequestLimiter{
		redis:  redisClient,
		scope:  scope,
		config: cfg,
	}
}

// NewOTPLimiter limits signup code requests.
func NewOTPLimiter(redisClient redis.UniversalClient, cfg RequestConfig) *RequestLimiter {
	return newRequestLimiter(redisClient, "otp", cfg)
}

// NewPasswordResetLimiter limits forgot-password requests.
func NewPasswordResetLimiter(redisClient redis.UniversalClient, cfg RequestConfig) *RequestLimiter {
	return newRequestLimiter(redisClient, "reset", cfg)
}

// NewRegistrationLimiter limits account creation attempts.
func NewRegistrationLimiter(redisClient redis.UniversalClient, cfg RequestConfig) *RequestLimiter {
	return newRequestLimiter(redisClient, "register", cfg)
}

// CheckRequest counts one request and fails once either budget is spent.
func (l *RequestLimiter) CheckRequest(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle && identifier != "" {
		if err := l.enforceFixedWindow(ctx, l.key("id", identifier)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, l.key("ip", ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *RequestLimiter) key(kind, value string) string {
	return l.config.Prefix + ":" + l.scope + ":" + kind + ":" + value
}

func (l *RequestLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	return nil
}
