package craveAuth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshRateLimited    = "refresh_rate_limited"
	auditEventLogout                = "logout"
	auditEventOTPSent               = "otp_sent"
	auditEventOTPVerified           = "otp_verified"
	auditEventOTPFailure            = "otp_failure"
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterFailure       = "register_failure"
	auditEventGoogleLoginSuccess    = "google_login_success"
	auditEventGoogleLoginFailure    = "google_login_failure"
	auditEventGoogleProvisioned     = "google_account_provisioned"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetConfirm  = "password_reset_confirm"
	auditEventAccountStatusChange   = "account_status_change"
	auditEventBlockedSessionRevoked = "blocked_session_revoked"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable, non-sensitive error label carried by audit
// events in place of raw error strings.
type AuditErrorCode string

const (
	auditErrInvalidRole         AuditErrorCode = "invalid_role"
	auditErrInvalidRequest      AuditErrorCode = "invalid_request"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrDuplicate           AuditErrorCode = "duplicate"
	auditErrEmailNotVerified    AuditErrorCode = "email_not_verified"
	auditErrAccountPending      AuditErrorCode = "account_pending"
	auditErrAccountBlocked      AuditErrorCode = "account_blocked"
	auditErrAccountRejected     AuditErrorCode = "account_rejected"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrOTPInvalid          AuditErrorCode = "otp_invalid"
	auditErrAttemptsExceeded    AuditErrorCode = "attempts_exceeded"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrTokenExpired        AuditErrorCode = "token_expired"
	auditErrTokenRevoked        AuditErrorCode = "token_revoked"
	auditErrPasswordPolicy      AuditErrorCode = "password_policy"
	auditErrPasswordReuse       AuditErrorCode = "password_reuse"
	auditErrGoogleRejected      AuditErrorCode = "google_rejected"
	auditErrSessionCreateFailed AuditErrorCode = "session_creation_failed"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	role Role,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Role:      string(role),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, role Role, identifier string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", role, nil, func() map[string]string {
		return map[string]string{
			"scope":      scope,
			"identifier": identifier,
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidRole):
		return auditErrInvalidRole
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidStatus):
		return auditErrInvalidRequest
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrEmailNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrEmailExists):
		return auditErrDuplicate
	case errors.Is(err, ErrEmailNotVerified):
		return auditErrEmailNotVerified
	case errors.Is(err, ErrAccountUnderVerification):
		return auditErrAccountPending
	case errors.Is(err, ErrAccountBlocked):
		return auditErrAccountBlocked
	case errors.Is(err, ErrAccountRejected):
		return auditErrAccountRejected
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited),
		errors.Is(err, ErrRegisterRateLimited),
		errors.Is(err, ErrOTPRateLimited),
		errors.Is(err, ErrPasswordResetLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrOTPAttempts):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenBlacklisted), errors.Is(err, ErrRefreshTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrResetTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordSame):
		return auditErrPasswordReuse
	case errors.Is(err, ErrGoogleAudience),
		errors.Is(err, ErrGoogleTokenInvalid),
		errors.Is(err, ErrGoogleDisabled),
		errors.Is(err, ErrVendorGoogleSignup):
		return auditErrGoogleRejected
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreateFailed
	case errors.Is(err, ErrOTPUnavailable),
		errors.Is(err, ErrBlacklistUnavailable),
		errors.Is(err, ErrPasswordResetUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
