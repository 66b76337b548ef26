package craveAuth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSendAndVerifySignupOTP(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	ctx := context.Background()

	if err := engine.SendSignupOTP(ctx, "New@Example.com"); err != nil {
		t.Fatalf("SendSignupOTP failed: %v", err)
	}
	code := deps.mailer.otp("new@example.com")
	if len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	if v, err := deps.mr.Get("otp:new@example.com"); err != nil || v == code {
		t.Fatal("expected only a hash of the code in redis")
	}

	if err := engine.VerifySignupOTP(ctx, "new@example.com", code); err != nil {
		t.Fatalf("VerifySignupOTP failed: %v", err)
	}
	if !deps.mr.Exists("otpv:new@example.com") {
		t.Fatal("expected verified marker")
	}
	if err := engine.VerifySignupOTP(ctx, "new@example.com", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected code to be single use, got %v", err)
	}
}

func TestSendSignupOTPRejectsRegisteredEmail(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	seedUser(t, engine, deps.admins, RoleAdmin, "boss@example.com", "admin-pass-1", StatusActive)

	if err := engine.SendSignupOTP(context.Background(), "boss@example.com"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	if deps.mailer.otp("boss@example.com") != "" {
		t.Fatal("no mail should be sent")
	}
}

func TestSendSignupOTPReplacesPreviousCode(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	ctx := context.Background()

	if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("SendSignupOTP failed: %v", err)
	}
	first := deps.mailer.otp("new@example.com")
	if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("SendSignupOTP failed: %v", err)
	}
	if deps.mailer.otp("new@example.com") == first {
		t.Skip("random codes collided")
	}

	if err := engine.VerifySignupOTP(ctx, "new@example.com", first); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected old code rejected, got %v", err)
	}
}

func TestSendSignupOTPRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.MaxRequests = 2
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if err := engine.SendSignupOTP(ctx, "new@example.com"); !errors.Is(err, ErrOTPRateLimited) {
		t.Fatalf("expected ErrOTPRateLimited, got %v", err)
	}
}

func TestSendSignupOTPMailFailureDropsCode(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	deps.mailer.err = errors.New("smtp down")

	if err := engine.SendSignupOTP(context.Background(), "new@example.com"); !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}
	if deps.mr.Exists("otp:new@example.com") {
		t.Fatal("expected code removed after mail failure")
	}
}

func TestVerifySignupOTPAttemptsExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.MaxAttempts = 2
	engine, deps := newTestEngine(t, cfg)
	ctx := context.Background()

	if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("SendSignupOTP failed: %v", err)
	}
	code := deps.mailer.otp("new@example.com")

	if err := engine.VerifySignupOTP(ctx, "new@example.com", "000000x"); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
	if err := engine.VerifySignupOTP(ctx, "new@example.com", "000000y"); !errors.Is(err, ErrOTPAttempts) {
		t.Fatalf("expected ErrOTPAttempts, got %v", err)
	}
	if err := engine.VerifySignupOTP(ctx, "new@example.com", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected burned code, got %v", err)
	}
}

func TestVerifySignupOTPExpired(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	ctx := context.Background()

	if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("SendSignupOTP failed: %v", err)
	}
	code := deps.mailer.otp("new@example.com")
	deps.mr.FastForward(5*time.Minute + time.Second)

	if err := engine.VerifySignupOTP(ctx, "new@example.com", code); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
}

func TestClearOTP(t *testing.T) {
	engine, deps := newTestEngine(t, testConfig())
	ctx := context.Background()

	if err := engine.SendSignupOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("SendSignupOTP failed: %v", err)
	}
	if err := engine.ClearOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("ClearOTP failed: %v", err)
	}
	if err := engine.ClearOTP(ctx, "new@example.com"); err != nil {
		t.Fatalf("second ClearOTP failed: %v", err)
	}
	if deps.mr.Exists("otp:new@example.com") {
		t.Fatal("expected code removed")
	}
}
