package stores

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func hashOf(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

func TestOTPStoreConsumeSuccessDeletes(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "otp")
	ctx := context.Background()

	if err := store.Save(ctx, "a@example.com", hashOf("123456"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mr.Exists("otp:a@example.com") {
		t.Fatal("expected record under prefixed key")
	}

	if err := store.Consume(ctx, "a@example.com", hashOf("123456"), 5); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if mr.Exists("otp:a@example.com") {
		t.Fatal("expected record to be deleted after success")
	}
	if err := store.Consume(ctx, "a@example.com", hashOf("123456"), 5); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected replay to fail with ErrOTPNotFound, got %v", err)
	}
}

func TestOTPStoreMismatchCountsAttempts(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "otp")
	ctx := context.Background()

	if err := store.Save(ctx, "b@example.com", hashOf("111111"), 5*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.Consume(ctx, "b@example.com", hashOf("000000"), 3); !errors.Is(err, ErrOTPMismatch) {
			t.Fatalf("attempt %d: expected ErrOTPMismatch, got %v", i, err)
		}
	}
	if ttl := mr.TTL("otp:b@example.com"); ttl <= 0 {
		t.Fatalf("expected ttl to survive mismatch rewrite, got %v", ttl)
	}

	if err := store.Consume(ctx, "b@example.com", hashOf("000000"), 3); !errors.Is(err, ErrOTPAttemptsExceeded) {
		t.Fatalf("expected ErrOTPAttemptsExceeded, got %v", err)
	}
	if mr.Exists("otp:b@example.com") {
		t.Fatal("expected record to be burned after max attempts")
	}
	if err := store.Consume(ctx, "b@example.com", hashOf("111111"), 3); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected correct code after burn to fail, got %v", err)
	}
}

func TestOTPStoreSaveResetsAttempts(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "otp")
	ctx := context.Background()

	_ = store.Save(ctx, "c@example.com", hashOf("222222"), time.Minute)
	_ = store.Consume(ctx, "c@example.com", hashOf("x"), 2)
	_ = store.Save(ctx, "c@example.com", hashOf("333333"), time.Minute)

	if err := store.Consume(ctx, "c@example.com", hashOf("x"), 2); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected fresh counter after resend, got %v", err)
	}
	if err := store.Consume(ctx, "c@example.com", hashOf("333333"), 2); err != nil {
		t.Fatalf("expected new code to verify: %v", err)
	}
}

func TestOTPStoreExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "otp")
	ctx := context.Background()

	_ = store.Save(ctx, "d@example.com", hashOf("444444"), time.Minute)
	mr.FastForward(2 * time.Minute)

	if err := store.Consume(ctx, "d@example.com", hashOf("444444"), 5); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected expired record to be not found, got %v", err)
	}
}

func TestOTPStoreDeleteIdempotent(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "otp")
	ctx := context.Background()

	if err := store.Delete(ctx, "missing@example.com"); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
}

func TestOTPStoreRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewOTPStore(rdb, "otp")
	mr.Close()

	err := store.Save(context.Background(), "e@example.com", hashOf("1"), time.Minute)
	if !errors.Is(err, ErrOTPRedisUnavailable) {
		t.Fatalf("expected ErrOTPRedisUnavailable, got %v", err)
	}
}

func TestVerifiedEmailStoreSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewVerifiedEmailStore(rdb, "otpv")
	ctx := context.Background()

	if err := store.Mark(ctx, "a@example.com", time.Minute); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}

	ok, err := store.Consume(ctx, "a@example.com")
	if err != nil || !ok {
		t.Fatalf("expected marker: ok=%v err=%v", ok, err)
	}
	ok, err = store.Consume(ctx, "a@example.com")
	if err != nil || ok {
		t.Fatalf("expected marker to be gone: ok=%v err=%v", ok, err)
	}

	_ = store.Mark(ctx, "b@example.com", time.Minute)
	mr.FastForward(2 * time.Minute)
	if ok, _ := store.Consume(ctx, "b@example.com"); ok {
		t.Fatal("expected expired marker to be absent")
	}
}

func TestBlacklistAddContains(t *testing.T) {
	mr, rdb := newTestRedis(t)
	bl := NewBlacklist(rdb, "bl")
	ctx := context.Background()
	h := hashOf("token-1")

	found, err := bl.Contains(ctx, h)
	if err != nil || found {
		t.Fatalf("expected empty blacklist: found=%v err=%v", found, err)
	}

	if err := bl.Add(ctx, h, 90*time.Second); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	found, err = bl.Contains(ctx, h)
	if err != nil || !found {
		t.Fatalf("expected token blacklisted: found=%v err=%v", found, err)
	}

	mr.FastForward(91 * time.Second)
	found, _ = bl.Contains(ctx, h)
	if found {
		t.Fatal("expected entry to expire with the token")
	}
}

func TestBlacklistNonPositiveTTLIsNoop(t *testing.T) {
	mr, rdb := newTestRedis(t)
	bl := NewBlacklist(rdb, "bl")

	if err := bl.Add(context.Background(), hashOf("t"), 0); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", mr.Keys())
	}
}

func TestBlacklistRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	bl := NewBlacklist(rdb, "bl")
	mr.Close()

	if _, err := bl.Contains(context.Background(), hashOf("t")); !errors.Is(err, ErrBlacklistRedisUnavailable) {
		t.Fatalf("expected ErrBlacklistRedisUnavailable, got %v", err)
	}
}

func TestResetTokenStoreConsume(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewResetTokenStore(rdb, "reset")
	ctx := context.Background()

	if err := store.Save(ctx, "u1", hashOf("first"), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "u1", hashOf("second"), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Consume(ctx, "u1", hashOf("first")); !errors.Is(err, ErrResetMismatch) {
		t.Fatalf("expected superseded token to mismatch, got %v", err)
	}
	if err := store.Consume(ctx, "u1", hashOf("second")); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := store.Consume(ctx, "u1", hashOf("second")); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected single use, got %v", err)
	}
}
