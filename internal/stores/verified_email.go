package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerifiedEmailStore records addresses that passed OTP verification and
// have not yet been used for registration.
type VerifiedEmailStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewVerifiedEmailStore(redisClient redis.UniversalClient, prefix string) *VerifiedEmailStore {
	if prefix == "" {
		prefix = "otpv"
	}
	return &VerifiedEmailStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *VerifiedEmailStore) key(email string) string {
	return s.prefix + ":" + email
}

func (s *VerifiedEmailStore) Mark(ctx context.Context, email string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(email), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return nil
}

// Consume atomically removes the marker and reports whether it was present.
func (s *VerifiedEmailStore) Consume(ctx context.Context, email string) (bool, error) {
	err := s.redis.GetDel(ctx, s.key(email)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return true, nil
}

func (s *VerifiedEmailStore) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return nil
}
