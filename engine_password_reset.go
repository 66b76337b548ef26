package craveAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CraveEvents/craveAuth/internal"
	"github.com/CraveEvents/craveAuth/internal/limiters"
	"github.com/CraveEvents/craveAuth/internal/stores"
	"github.com/CraveEvents/craveAuth/password"
	"go.uber.org/zap"
)

// RequestPasswordReset mails a reset link for the account of role with the
// given email. Only the most recent link of a user is honored.
func (e *Engine) RequestPasswordReset(ctx context.Context, role Role, email string) error {
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}
	if e.resetStore == nil || e.mailer == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if !role.CanSelfRegister() {
		return ErrInvalidRole
	}
	repo, err := e.repoFor(role)
	if err != nil {
		return err
	}
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidRequest
	}

	if err := e.resetLimiter.CheckRequest(ctx, email, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrRateLimited) {
			e.emitRateLimit(ctx, "password_reset", role, email)
			return ErrPasswordResetLimited
		}
		return wrapUnavailable(ErrPasswordResetUnavailable, err)
	}

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", role, ErrEmailNotFound, nil)
			return ErrEmailNotFound
		}
		return err
	}

	token, _, err := e.jwtManager.IssueReset(user.UserID, user.Email, string(role))
	if err != nil {
		return err
	}
	if err := e.resetStore.Save(ctx, user.UserID, internal.HashToken(token), e.config.JWT.ResetTTL); err != nil {
		return wrapUnavailable(ErrPasswordResetUnavailable, err)
	}

	link := strings.TrimRight(e.config.Frontend.Origin, "/") + "/reset-password/" + token
	if err := e.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.UserID, role, nil, nil)
	return nil
}

// ResetPassword sets newPassword for the user named by a reset token. The
// token is single use and, with PasswordReset.RevokeSessions, every refresh
// token of the user is revoked afterwards.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}
	if e.resetStore == nil || e.passwords == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if token == "" || newPassword == "" {
		return ErrInvalidRequest
	}

	claims, err := e.jwtManager.ParseReset(token)
	if err != nil {
		e.resetFailure(ctx, "", "", ErrResetTokenInvalid)
		return ErrResetTokenInvalid
	}
	role := Role(claims.Role)
	if !role.CanSelfRegister() {
		e.resetFailure(ctx, claims.UID, role, ErrInvalidRole)
		return ErrInvalidRole
	}
	repo, err := e.repoFor(role)
	if err != nil {
		return err
	}

	user, err := repo.FindByID(ctx, claims.UID)
	if err != nil {
		e.resetFailure(ctx, claims.UID, role, err)
		return err
	}
	if same, _ := e.passwords.Verify(newPassword, user.PasswordHash); same {
		e.resetFailure(ctx, user.UserID, role, ErrPasswordSame)
		return ErrPasswordSame
	}

	hash, err := e.passwords.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordLength) {
			return ErrPasswordPolicy
		}
		return err
	}

	switch err := e.resetStore.Consume(ctx, user.UserID, internal.HashToken(token)); {
	case err == nil:
	case errors.Is(err, stores.ErrResetNotFound), errors.Is(err, stores.ErrResetMismatch):
		e.resetFailure(ctx, user.UserID, role, ErrResetTokenInvalid)
		return ErrResetTokenInvalid
	default:
		return wrapUnavailable(ErrPasswordResetUnavailable, err)
	}

	if err := repo.UpdatePassword(ctx, user.UserID, hash); err != nil {
		e.resetFailure(ctx, user.UserID, role, err)
		return err
	}

	if e.config.PasswordReset.RevokeSessions {
		if err := e.RevokeAllRefreshTokens(ctx, user.UserID); err != nil {
			e.logger.Warn("sessions not revoked after password reset",
				zap.String("user_id", user.UserID),
				zap.Error(err),
			)
		}
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.UserID, role, nil, nil)
	return nil
}

func (e *Engine) resetFailure(ctx context.Context, userID string, role Role, err error) {
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, userID, role, err, nil)
}
