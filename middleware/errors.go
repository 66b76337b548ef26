package middleware

import (
	"errors"
	"net/http"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/gin-gonic/gin"
)

// User-facing messages. Clients match on these strings, so they only change
// together with the frontend.
const (
	MsgTokenExpired        = "Session expired login again"
	MsgTokenBlacklisted    = "Session is no longer valid"
	MsgInvalidToken        = "Invalid session please login again"
	MsgUnauthorized        = "Not authorized"
	MsgNotAllowed          = "You can’t do this action"
	MsgInvalidRole         = "Access denied"
	MsgUserNotFound        = "User not found"
	MsgInvalidCredentials  = "Wrong email or password"
	MsgEmailExists         = "Email already registered"
	MsgEmailNotFound       = "Email not found"
	MsgInvalidOTP          = "Invalid otp"
	MsgOTPExpired          = "OTP has expired. Please request a new one."
	MsgTooManyAttempts     = "Too many failed attempts try again later"
	MsgRateLimited         = "Too many requests try again later"
	MsgServerError         = "Something went wrong try again later"
	MsgValidation          = "Check your inputs and try again"
	MsgMissingParameters   = "Some details are missing"
	MsgUnderVerification   = "Your account is under verification. Please wait for admin approval."
	MsgPasswordSame        = "New password must be different from current password"
	MsgBlocked             = "Your account is blocked"
	MsgRejected            = "Your account has been deactivated"
	MsgVendorGoogleSignup  = "Vendor accounts cannot be created using Google. Please Register First"
	MsgAccountBlockedAbort = "Access denied: Your account has been blocked"
	MsgNotFound            = "Page not found"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// First match wins. Unavailable backends come before the credential errors
// they may wrap.
var errorTable = []errorMapping{
	{craveAuth.ErrBlacklistUnavailable, http.StatusServiceUnavailable, MsgServerError},
	{craveAuth.ErrSessionStoreUnavailable, http.StatusServiceUnavailable, MsgServerError},
	{craveAuth.ErrOTPUnavailable, http.StatusServiceUnavailable, MsgServerError},
	{craveAuth.ErrPasswordResetUnavailable, http.StatusServiceUnavailable, MsgServerError},
	{craveAuth.ErrMailDelivery, http.StatusBadGateway, MsgServerError},

	{craveAuth.ErrTokenBlacklisted, http.StatusForbidden, MsgTokenBlacklisted},
	{craveAuth.ErrTokenExpired, http.StatusUnauthorized, MsgTokenExpired},
	{craveAuth.ErrTokenInvalid, http.StatusUnauthorized, MsgInvalidToken},
	{craveAuth.ErrRefreshTokenRevoked, http.StatusUnauthorized, MsgInvalidToken},
	{craveAuth.ErrResetTokenInvalid, http.StatusBadRequest, MsgInvalidToken},

	{craveAuth.ErrInvalidRole, http.StatusBadRequest, MsgInvalidRole},
	{craveAuth.ErrInvalidRequest, http.StatusBadRequest, MsgMissingParameters},
	{craveAuth.ErrInvalidStatus, http.StatusBadRequest, MsgValidation},
	{craveAuth.ErrPasswordPolicy, http.StatusBadRequest, MsgValidation},
	{craveAuth.ErrPasswordSame, http.StatusBadRequest, MsgPasswordSame},
	{craveAuth.ErrEmailNotVerified, http.StatusBadRequest, MsgInvalidOTP},
	{craveAuth.ErrOTPInvalid, http.StatusBadRequest, MsgInvalidOTP},
	{craveAuth.ErrOTPAttempts, http.StatusTooManyRequests, MsgTooManyAttempts},

	{craveAuth.ErrUserNotFound, http.StatusNotFound, MsgUserNotFound},
	{craveAuth.ErrEmailNotFound, http.StatusNotFound, MsgEmailNotFound},
	{craveAuth.ErrInvalidCredentials, http.StatusUnauthorized, MsgInvalidCredentials},
	{craveAuth.ErrEmailExists, http.StatusConflict, MsgEmailExists},

	{craveAuth.ErrAccountUnderVerification, http.StatusForbidden, MsgUnderVerification},
	{craveAuth.ErrAccountBlocked, http.StatusForbidden, MsgBlocked},
	{craveAuth.ErrAccountRejected, http.StatusForbidden, MsgRejected},
	{craveAuth.ErrVendorGoogleSignup, http.StatusForbidden, MsgVendorGoogleSignup},
	{craveAuth.ErrGoogleAudience, http.StatusUnauthorized, MsgInvalidToken},
	{craveAuth.ErrGoogleTokenInvalid, http.StatusUnauthorized, MsgInvalidToken},
	{craveAuth.ErrGoogleDisabled, http.StatusNotFound, MsgNotFound},
	{craveAuth.ErrPasswordResetDisabled, http.StatusNotFound, MsgNotFound},

	{craveAuth.ErrLoginRateLimited, http.StatusTooManyRequests, MsgTooManyAttempts},
	{craveAuth.ErrRefreshRateLimited, http.StatusTooManyRequests, MsgRateLimited},
	{craveAuth.ErrRegisterRateLimited, http.StatusTooManyRequests, MsgRateLimited},
	{craveAuth.ErrOTPRateLimited, http.StatusTooManyRequests, MsgRateLimited},
	{craveAuth.ErrPasswordResetLimited, http.StatusTooManyRequests, MsgRateLimited},
}

// StatusFor maps an Engine error to an HTTP status and the message shown to
// the user. Unknown errors are 500.
func StatusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, MsgServerError
}

// Fail aborts c with the JSON error envelope.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// FailWith aborts c with the status and message StatusFor assigns to err.
func FailWith(c *gin.Context, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	Fail(c, status, message)
}
