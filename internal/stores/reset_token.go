package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResetNotFound         = errors.New("reset record not found")
	ErrResetMismatch         = errors.New("reset token mismatch")
	ErrResetRedisUnavailable = errors.New("reset redis unavailable")
)

// consumeResetLua deletes the record only when the stored hash matches.
// KEYS[1] = record key
// ARGV[1] = provided hash (32 bytes)
var consumeResetLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
if data ~= ARGV[1] then
  return {err='mismatch'}
end
redis.call('DEL', KEYS[1])
return 'ok'
`)

// ResetTokenStore keeps the hash of the one live reset token per user.
// Issuing a new token overwrites the previous one, so only the latest link
// in the user's mailbox works.
type ResetTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewResetTokenStore(redisClient redis.UniversalClient, prefix string) *ResetTokenStore {
	if prefix == "" {
		prefix = "reset"
	}
	return &ResetTokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ResetTokenStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *ResetTokenStore) Save(ctx context.Context, userID string, tokenHash [32]byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(userID), string(tokenHash[:]), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return nil
}

// Consume removes the record if it holds tokenHash.
func (s *ResetTokenStore) Consume(ctx context.Context, userID string, tokenHash [32]byte) error {
	_, err := consumeResetLua.Run(ctx, s.redis, []string{s.key(userID)}, string(tokenHash[:])).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return ErrResetNotFound
		case "mismatch":
			return ErrResetMismatch
		default:
			return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
		}
	}
	return nil
}
