package craveAuth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSecurityInvariantRefreshReplayRejected(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, u := loginClient(t, engine, deps)
	ctx := context.Background()

	if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}
	if n := deps.refresh.countFor(u.UserID); n != 1 {
		t.Fatalf("expected only the rotated token persisted, got %d", n)
	}
}

func TestSecurityInvariantTokenKindsNotInterchangeable(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, _ := loginClient(t, engine, deps)
	ctx := context.Background()

	if _, err := engine.ValidateAccess(ctx, login.Tokens.RefreshToken); err == nil {
		t.Fatal("refresh token must not validate as access token")
	}
	if _, err := engine.Refresh(ctx, login.Tokens.AccessToken); err == nil {
		t.Fatal("access token must not refresh")
	}
}

func TestSecurityInvariantBlacklistEntryExpiresWithToken(t *testing.T) {
	cfg := testConfig()
	engine, deps := newTestEngine(t, cfg)
	login, _ := loginClient(t, engine, deps)
	ctx := context.Background()

	if err := engine.BlacklistAccessToken(ctx, login.Tokens.AccessToken); err != nil {
		t.Fatalf("BlacklistAccessToken failed: %v", err)
	}
	var keys []string
	for _, k := range deps.mr.Keys() {
		if strings.HasPrefix(k, cfg.Stores.BlacklistPrefix+":") {
			keys = append(keys, k)
		}
	}
	if len(keys) != 1 {
		t.Fatalf("expected one blacklist key, got %v", keys)
	}
	if ttl := deps.mr.TTL(keys[0]); ttl <= 0 || ttl > cfg.JWT.AccessTTL {
		t.Fatalf("blacklist TTL %v outside (0, %v]", ttl, cfg.JWT.AccessTTL)
	}
	if strings.Contains(keys[0], login.Tokens.AccessToken) {
		t.Fatal("blacklist key must not contain the raw token")
	}
}

func TestSecurityInvariantOTPAndResetStateExpire(t *testing.T) {
	t.Run("signup otp expires", func(t *testing.T) {
		cfg := testConfig()
		engine, deps := newTestEngine(t, cfg)
		ctx := context.Background()

		if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
			t.Fatalf("SendSignupOTP failed: %v", err)
		}
		deps.mr.FastForward(cfg.OTP.TTL + 1)
		if err := engine.VerifySignupOTP(ctx, "new@example.com", deps.mailer.otp("new@example.com")); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("expected ErrOTPInvalid for expired code, got %v", err)
		}
	})

	t.Run("verified email marker expires", func(t *testing.T) {
		cfg := testConfig()
		engine, deps := newTestEngine(t, cfg)
		ctx := context.Background()

		if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
			t.Fatalf("SendSignupOTP failed: %v", err)
		}
		if err := engine.VerifySignupOTP(ctx, "new@example.com", deps.mailer.otp("new@example.com")); err != nil {
			t.Fatalf("VerifySignupOTP failed: %v", err)
		}
		deps.mr.FastForward(cfg.OTP.VerifiedTTL + 1)

		_, err := engine.Register(ctx, RegisterRequest{
			Role:     RoleClient,
			Name:     "New Person",
			Email:    "new@example.com",
			Phone:    "9876543210",
			Password: "Str0ng!Pass",
		})
		if !errors.Is(err, ErrEmailNotVerified) {
			t.Fatalf("expected ErrEmailNotVerified after marker expiry, got %v", err)
		}
	})

	t.Run("password reset record expires", func(t *testing.T) {
		cfg := testConfig()
		engine, deps := newTestEngine(t, cfg)
		u := seedUser(t, engine, deps.clients, RoleClient, "alice@example.com", "correct-horse-1", StatusActive)

		token := requestReset(t, engine, deps, RoleClient, u.Email)
		deps.mr.FastForward(cfg.JWT.ResetTTL + 1)
		if err := engine.ResetPassword(context.Background(), token, "brand-new-pass-2"); !errors.Is(err, ErrResetTokenInvalid) {
			t.Fatalf("expected ErrResetTokenInvalid for expired record, got %v", err)
		}
	})
}
