//go:build integration
// +build integration

package test

import (
	"context"
	"testing"

	craveAuth "github.com/CraveEvents/craveAuth"
)

func TestRedisBudgetValidateAccess(t *testing.T) {
	kit, counter := newCountedKit(t)
	login, _ := kit.Login(t, craveAuth.RoleClient, "alice@example.com")

	counter.Reset()
	if _, err := kit.Engine.ValidateAccess(context.Background(), login.Tokens.AccessToken); err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("ValidateAccess: expected 1 Redis command, got %d", got)
	}
}

func TestRedisBudgetDecodeAccessIsFree(t *testing.T) {
	kit, counter := newCountedKit(t)
	login, _ := kit.Login(t, craveAuth.RoleClient, "alice@example.com")

	counter.Reset()
	if _, err := kit.Engine.DecodeAccess(login.Tokens.AccessToken); err != nil {
		t.Fatalf("DecodeAccess failed: %v", err)
	}
	if got := counter.Commands(); got != 0 {
		t.Fatalf("DecodeAccess: expected no Redis commands, got %d", got)
	}
}

func TestRedisBudgetBlacklist(t *testing.T) {
	kit, counter := newCountedKit(t)
	login, _ := kit.Login(t, craveAuth.RoleClient, "alice@example.com")
	ctx := context.Background()

	counter.Reset()
	if err := kit.Engine.BlacklistAccessToken(ctx, login.Tokens.AccessToken); err != nil {
		t.Fatalf("BlacklistAccessToken failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("BlacklistAccessToken: expected 1 Redis command, got %d", got)
	}

	counter.Reset()
	blacklisted, err := kit.Engine.IsBlacklisted(ctx, login.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !blacklisted {
		t.Fatal("expected token blacklisted")
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("IsBlacklisted: expected 1 Redis command, got %d", got)
	}
}

func TestRedisBudgetRefresh(t *testing.T) {
	kit, counter := newCountedKit(t)
	login, _ := kit.Login(t, craveAuth.RoleClient, "alice@example.com")
	ctx := context.Background()

	counter.Reset()
	next, err := kit.Engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	// First hit in a window sets the expiry as well.
	if got := counter.Commands(); got > 2 {
		t.Fatalf("Refresh: expected at most 2 Redis commands, got %d", got)
	}

	counter.Reset()
	if _, err := kit.Engine.Refresh(ctx, next.Tokens.RefreshToken); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("second Refresh: expected 1 Redis command, got %d", got)
	}
}

func TestRedisBudgetLogout(t *testing.T) {
	kit, counter := newCountedKit(t)
	login, _ := kit.Login(t, craveAuth.RoleClient, "alice@example.com")

	counter.Reset()
	if err := kit.Engine.Logout(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if got := counter.Commands(); got != 1 {
		t.Fatalf("Logout: expected 1 Redis command, got %d", got)
	}
}
