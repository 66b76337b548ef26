package craveAuth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/CraveEvents/craveAuth/internal"
	"github.com/CraveEvents/craveAuth/internal/limiters"
	"github.com/CraveEvents/craveAuth/internal/stores"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SendSignupOTP mails a fresh signup code to email. Any earlier code for the
// address stops working.
func (e *Engine) SendSignupOTP(ctx context.Context, email string) error {
	if e.otpStore == nil || e.mailer == nil {
		return ErrEngineNotReady
	}
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidRequest
	}

	if err := e.otpLimiter.CheckRequest(ctx, email, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrRateLimited) {
			e.emitRateLimit(ctx, "otp", "", email)
			return ErrOTPRateLimited
		}
		return wrapUnavailable(ErrOTPUnavailable, err)
	}

	registered, err := e.emailRegistered(ctx, email)
	if err != nil {
		return err
	}
	if registered {
		e.emitAudit(ctx, auditEventOTPSent, false, "", "", ErrEmailExists, nil)
		return ErrEmailExists
	}

	code, err := internal.NewOTP(e.config.OTP.Digits)
	if err != nil {
		return err
	}
	if err := e.otpStore.Save(ctx, email, internal.HashOTP(email, code), e.config.OTP.TTL); err != nil {
		return wrapUnavailable(ErrOTPUnavailable, err)
	}

	if err := e.mailer.SendOTP(ctx, email, code); err != nil {
		if delErr := e.otpStore.Delete(ctx, email); delErr != nil {
			e.logger.Warn("otp cleanup after mail failure", zap.Error(delErr))
		}
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricOTPSent)
	e.emitAudit(ctx, auditEventOTPSent, true, "", "", nil, nil)
	return nil
}

// VerifySignupOTP checks code against the live code of email. Success
// consumes the code and marks the address as verified for registration.
func (e *Engine) VerifySignupOTP(ctx context.Context, email, code string) error {
	if e.otpStore == nil || e.verifiedStore == nil {
		return ErrEngineNotReady
	}
	email = NormalizeEmail(email)
	if email == "" || code == "" {
		e.metricInc(MetricOTPFailure)
		return ErrOTPInvalid
	}

	err := e.otpStore.Consume(ctx, email, internal.HashOTP(email, code), e.config.OTP.MaxAttempts)
	switch {
	case err == nil:
	case errors.Is(err, stores.ErrOTPNotFound), errors.Is(err, stores.ErrOTPMismatch):
		e.metricInc(MetricOTPFailure)
		e.emitAudit(ctx, auditEventOTPFailure, false, "", "", ErrOTPInvalid, nil)
		return ErrOTPInvalid
	case errors.Is(err, stores.ErrOTPAttemptsExceeded):
		e.metricInc(MetricOTPAttemptsExceeded)
		e.emitAudit(ctx, auditEventOTPFailure, false, "", "", ErrOTPAttempts, nil)
		return ErrOTPAttempts
	default:
		return wrapUnavailable(ErrOTPUnavailable, err)
	}

	if err := e.verifiedStore.Mark(ctx, email, e.config.OTP.VerifiedTTL); err != nil {
		return wrapUnavailable(ErrOTPUnavailable, err)
	}

	e.metricInc(MetricOTPVerified)
	e.emitAudit(ctx, auditEventOTPVerified, true, "", "", nil, nil)
	return nil
}

// ClearOTP drops the pending code and the verified marker of email.
func (e *Engine) ClearOTP(ctx context.Context, email string) error {
	if e.otpStore == nil || e.verifiedStore == nil {
		return ErrEngineNotReady
	}
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidRequest
	}
	if err := e.otpStore.Delete(ctx, email); err != nil {
		return wrapUnavailable(ErrOTPUnavailable, err)
	}
	if err := e.verifiedStore.Delete(ctx, email); err != nil {
		return wrapUnavailable(ErrOTPUnavailable, err)
	}
	return nil
}

// emailRegistered looks email up in every role collection concurrently.
func (e *Engine) emailRegistered(ctx context.Context, email string) (bool, error) {
	var found atomic.Bool
	g, gctx := errgroup.WithContext(ctx)

	for _, role := range Roles {
		repo, ok := e.users.forRole(role)
		if !ok {
			continue
		}
		g.Go(func() error {
			_, err := repo.FindByEmail(gctx, email)
			switch {
			case err == nil:
				found.Store(true)
				return nil
			case errors.Is(err, ErrUserNotFound):
				return nil
			default:
				return err
			}
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}
	return found.Load(), nil
}
