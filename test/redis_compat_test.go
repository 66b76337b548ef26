//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/internal/testkit"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes returns miniredis, plus a real standalone Redis when REDIS_ADDR
// is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				mr := miniredis.RunT(t)
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close() })
				return rdb
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) redis.UniversalClient {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() {
					rdb.FlushDB(context.Background())
					_ = rdb.Close()
				})
				return rdb
			},
		})
	}
	return modes
}

func TestRedisCompatSignupOTP(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			kit := testkit.NewWithRedis(t, testkit.Config(), mode.setup(t))
			ctx := context.Background()

			if err := kit.Engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
				t.Fatalf("SendSignupOTP failed: %v", err)
			}
			if err := kit.Engine.VerifySignupOTP(ctx, "new@example.com", "000000"); !errors.Is(err, craveAuth.ErrOTPInvalid) {
				t.Fatalf("expected ErrOTPInvalid, got %v", err)
			}
			if err := kit.Engine.VerifySignupOTP(ctx, "new@example.com", kit.Mailer.Code("new@example.com")); err != nil {
				t.Fatalf("VerifySignupOTP failed: %v", err)
			}

			profile, err := kit.Engine.Register(ctx, craveAuth.RegisterRequest{
				Role:     craveAuth.RoleClient,
				Name:     "New Person",
				Email:    "new@example.com",
				Phone:    "9876543210",
				Password: "Str0ng!Pass",
			})
			if err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if profile.Status != craveAuth.StatusActive {
				t.Fatalf("expected active client, got %q", profile.Status)
			}
		})
	}
}

func TestRedisCompatBlacklist(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			kit := testkit.NewWithRedis(t, testkit.Config(), mode.setup(t))
			login, _ := kit.Login(t, craveAuth.RoleClient, "alice@example.com")
			ctx := context.Background()

			if err := kit.Engine.Logout(ctx, login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}
			if _, err := kit.Engine.ValidateAccess(ctx, login.Tokens.AccessToken); !errors.Is(err, craveAuth.ErrTokenBlacklisted) {
				t.Fatalf("expected ErrTokenBlacklisted, got %v", err)
			}
			ttl := kit.RDB.TTL(ctx, blacklistKey(t, kit)).Val()
			if ttl <= 0 || ttl > kit.Config.JWT.AccessTTL {
				t.Fatalf("blacklist entry TTL %v outside (0, %v]", ttl, kit.Config.JWT.AccessTTL)
			}
		})
	}
}

func TestRedisCompatPasswordReset(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			kit := testkit.NewWithRedis(t, testkit.Config(), mode.setup(t))
			u := kit.Seed(t, craveAuth.RoleVendor, "shop@example.com", "vendor-pass-1", craveAuth.StatusActive)
			ctx := context.Background()

			if err := kit.Engine.RequestPasswordReset(ctx, craveAuth.RoleVendor, u.Email); err != nil {
				t.Fatalf("RequestPasswordReset failed: %v", err)
			}
			token := kit.Mailer.ResetToken(u.Email)
			if err := kit.Engine.ResetPassword(ctx, token, "vendor-pass-2"); err != nil {
				t.Fatalf("ResetPassword failed: %v", err)
			}
			if err := kit.Engine.ResetPassword(ctx, token, "vendor-pass-3"); !errors.Is(err, craveAuth.ErrResetTokenInvalid) {
				t.Fatalf("expected ErrResetTokenInvalid on replay, got %v", err)
			}
		})
	}
}

// blacklistKey returns the single blacklist key in the keyspace.
func blacklistKey(t *testing.T, kit *testkit.Kit) string {
	t.Helper()
	keys, err := kit.RDB.Keys(context.Background(), kit.Config.Stores.BlacklistPrefix+":*").Result()
	if err != nil {
		t.Fatalf("KEYS failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected one blacklist key, got %v", keys)
	}
	return keys[0]
}
