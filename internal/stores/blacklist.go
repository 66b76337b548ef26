package stores

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrBlacklistRedisUnavailable = errors.New("blacklist redis unavailable")

// Blacklist holds revoked access tokens until they would have expired on
// their own. Entries are keyed by the token's SHA-256 so raw bearer tokens
// never sit in Redis.
type Blacklist struct {
	redis  redis.UniversalClient
	prefix string
}

func NewBlacklist(redisClient redis.UniversalClient, prefix string) *Blacklist {
	if prefix == "" {
		prefix = "bl"
	}
	return &Blacklist{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (b *Blacklist) key(tokenHash [32]byte) string {
	return b.prefix + ":" + hex.EncodeToString(tokenHash[:])
}

// Add stores the hash for ttl. A non-positive ttl is a no-op because the
// token is already unusable.
func (b *Blacklist) Add(ctx context.Context, tokenHash [32]byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.redis.Set(ctx, b.key(tokenHash), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBlacklistRedisUnavailable, err)
	}
	return nil
}

func (b *Blacklist) Contains(ctx context.Context, tokenHash [32]byte) (bool, error) {
	n, err := b.redis.Exists(ctx, b.key(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBlacklistRedisUnavailable, err)
	}
	return n > 0, nil
}
