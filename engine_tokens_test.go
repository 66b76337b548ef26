package craveAuth

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/CraveEvents/craveAuth/internal"
	"github.com/CraveEvents/craveAuth/jwt"
)

func loginClient(t *testing.T, engine *Engine, deps *testDeps) (*LoginResult, User) {
	t.Helper()

	u := seedUser(t, engine, deps.clients, RoleClient, "alice@example.com", "correct-horse-1", StatusActive)
	res, err := engine.Login(context.Background(), RoleClient, u.Email, "correct-horse-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res, u
}

// expiredAccessToken signs an access token that lapsed a minute ago.
func expiredAccessToken(t *testing.T, cfg Config, uid string) string {
	t.Helper()

	past := time.Now().Add(-time.Hour)
	claims := jwt.Claims{
		UID:   uid,
		Email: "alice@example.com",
		Role:  string(RoleClient),
		Type:  jwt.TypeAccess,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			IssuedAt:  gojwt.NewNumericDate(past),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(cfg.JWT.AccessSecret)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return token
}

func TestRefreshRotatesToken(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, u := loginClient(t, engine, deps)
	ctx := context.Background()

	next, err := engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if next.Tokens.RefreshToken == login.Tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if next.User.UserID != u.UserID {
		t.Fatalf("unexpected user %q", next.User.UserID)
	}
	if deps.refresh.countFor(u.UserID) != 1 {
		t.Fatalf("expected exactly one live refresh record, got %d", deps.refresh.countFor(u.UserID))
	}

	if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked on reuse, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, _ := loginClient(t, engine, deps)

	if _, err := engine.Refresh(context.Background(), login.Tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestRefreshBlockedUser(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, u := loginClient(t, engine, deps)

	if err := deps.clients.UpdateStatus(context.Background(), u.UserID, StatusBlocked); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if _, err := engine.Refresh(context.Background(), login.Tokens.RefreshToken); !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
}

func TestRefreshStoreUnavailable(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, _ := loginClient(t, engine, deps)
	deps.refresh.failAll = true

	if _, err := engine.Refresh(context.Background(), login.Tokens.RefreshToken); !errors.Is(err, ErrSessionStoreUnavailable) {
		t.Fatalf("expected ErrSessionStoreUnavailable, got %v", err)
	}
}

func TestLogoutBlacklistsAndRevokes(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, u := loginClient(t, engine, deps)
	ctx := context.Background()

	if err := engine.Logout(ctx, login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := engine.ValidateAccess(ctx, login.Tokens.AccessToken); !errors.Is(err, ErrTokenBlacklisted) {
		t.Fatalf("expected ErrTokenBlacklisted, got %v", err)
	}
	if deps.refresh.countFor(u.UserID) != 0 {
		t.Fatal("expected refresh record removed")
	}
	if _, err := engine.Refresh(ctx, login.Tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}

	ttl := deps.mr.TTL("bl:" + hexHash(login.Tokens.AccessToken))
	if ttl <= 0 || ttl > engine.config.JWT.AccessTTL {
		t.Fatalf("blacklist TTL should track the token lifetime, got %v", ttl)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, _ := loginClient(t, engine, deps)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := engine.Logout(ctx, login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
			t.Fatalf("Logout %d failed: %v", i, err)
		}
	}
}

func TestBlacklistExpiredTokenIsNoop(t *testing.T) {
	cfg := testConfig()
	engine, deps := newTestEngine(t, cfg)
	token := expiredAccessToken(t, cfg, "CRAVE-EVENTS-client-x")

	if err := engine.BlacklistAccessToken(context.Background(), token); err != nil {
		t.Fatalf("BlacklistAccessToken failed: %v", err)
	}
	if keys := deps.mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no blacklist entry, got %v", keys)
	}
	if _, err := engine.ValidateAccess(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	auth, err := engine.DecodeAccess(token)
	if err != nil {
		t.Fatalf("DecodeAccess should accept expired tokens: %v", err)
	}
	if auth.UserID != "CRAVE-EVENTS-client-x" {
		t.Fatalf("unexpected user %q", auth.UserID)
	}
}

func TestBlacklistRejectsForgedToken(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	if err := engine.BlacklistAccessToken(context.Background(), "not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestValidateAccessFailsClosedWhenRedisDown(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	login, _ := loginClient(t, engine, deps)
	deps.mr.Close()

	_, err := engine.ValidateAccess(context.Background(), login.Tokens.AccessToken)
	if !errors.Is(err, ErrBlacklistUnavailable) {
		t.Fatalf("expected ErrBlacklistUnavailable, got %v", err)
	}
}

func TestRevokeAllRefreshTokens(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	_, u := loginClient(t, engine, deps)
	if _, err := engine.Login(context.Background(), RoleClient, u.Email, "correct-horse-1"); err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	if deps.refresh.countFor(u.UserID) != 2 {
		t.Fatalf("expected two sessions, got %d", deps.refresh.countFor(u.UserID))
	}

	if err := engine.RevokeAllRefreshTokens(context.Background(), u.UserID); err != nil {
		t.Fatalf("RevokeAllRefreshTokens failed: %v", err)
	}
	if deps.refresh.countFor(u.UserID) != 0 {
		t.Fatal("expected all sessions revoked")
	}
}

func hexHash(token string) string {
	h := internal.HashToken(token)
	return hex.EncodeToString(h[:])
}
