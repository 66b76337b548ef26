package craveAuth

import "errors"

var (
	// ErrInvalidRole is returned when a role is unknown or not allowed for the operation.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidRequest is returned when required input is missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUserNotFound is returned when no account matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists is returned when an email is already registered under any role.
	ErrEmailExists = errors.New("email already registered")
	// ErrEmailNotFound is returned by password reset when the email is unknown for the role.
	ErrEmailNotFound = errors.New("email not found")
	// ErrEmailNotVerified is returned by registration when the signup OTP was not confirmed.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrAccountUnderVerification is returned for pending accounts.
	ErrAccountUnderVerification = errors.New("account under verification")
	// ErrAccountBlocked is returned for blocked accounts.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrAccountRejected is returned for rejected accounts.
	ErrAccountRejected = errors.New("account rejected")
	// ErrInvalidStatus is returned when a status transition names an unknown status.
	ErrInvalidStatus = errors.New("invalid account status")

	ErrLoginRateLimited    = errors.New("login rate limited")
	ErrRefreshRateLimited  = errors.New("refresh rate limited")
	ErrRegisterRateLimited = errors.New("registration rate limited")

	// ErrOTPInvalid is returned when no live code exists or the code does not match.
	ErrOTPInvalid = errors.New("invalid otp")
	// ErrOTPAttempts is returned when the code was burned by too many wrong guesses.
	ErrOTPAttempts = errors.New("otp attempts exceeded")
	// ErrOTPRateLimited is returned when codes are requested too often.
	ErrOTPRateLimited = errors.New("otp rate limited")
	// ErrOTPUnavailable wraps Redis failures of the OTP store.
	ErrOTPUnavailable = errors.New("otp backend unavailable")

	// ErrTokenInvalid is returned for tokens that fail signature or claim checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenBlacklisted is returned for access tokens revoked by logout or block.
	ErrTokenBlacklisted = errors.New("token blacklisted")
	// ErrRefreshTokenRevoked is returned when a refresh token has no persisted record.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	// ErrBlacklistUnavailable wraps Redis failures of the blacklist.
	ErrBlacklistUnavailable = errors.New("blacklist backend unavailable")
	// ErrSessionStoreUnavailable wraps failures of the refresh token repository.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionCreationFailed is returned when issued tokens could not be persisted.
	ErrSessionCreationFailed = errors.New("session creation failed")

	ErrResetTokenInvalid        = errors.New("reset token invalid")
	ErrPasswordResetLimited     = errors.New("password reset rate limited")
	ErrPasswordResetUnavailable = errors.New("password reset backend unavailable")
	// ErrPasswordResetDisabled is returned when PasswordReset.Enabled is false.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrPasswordSame is returned when a reset reuses the current password.
	ErrPasswordSame = errors.New("new password must be different from current password")
	// ErrPasswordPolicy is returned when a password cannot be hashed under the configured policy.
	ErrPasswordPolicy = errors.New("password policy violation")

	// ErrGoogleDisabled is returned when no Google verifier is configured.
	ErrGoogleDisabled = errors.New("google login disabled")
	// ErrGoogleAudience is returned when the client id is not an allowed audience.
	ErrGoogleAudience = errors.New("google client id not allowed")
	// ErrGoogleTokenInvalid is returned when the ID token fails verification or lacks an email.
	ErrGoogleTokenInvalid = errors.New("invalid google credential")
	// ErrVendorGoogleSignup is returned when Google login would have to create a vendor.
	ErrVendorGoogleSignup = errors.New("vendor accounts cannot be created using google")

	// ErrMailDelivery wraps Mailer failures on flows that cannot succeed without the mail.
	ErrMailDelivery = errors.New("mail delivery failed")

	// ErrEngineNotReady is returned when a required dependency was not wired.
	ErrEngineNotReady = errors.New("engine not initialized")
)
