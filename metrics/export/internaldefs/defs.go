package internaldefs

import (
	craveAuth "github.com/CraveEvents/craveAuth"
)

// CounterDef names one engine counter for the exporters.
type CounterDef struct {
	ID   craveAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for the exporters.
type HistogramDef struct {
	ID   craveAuth.MetricID
	Name string
	Help string
}

const AuditDroppedName = "crave_auth_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: craveAuth.MetricLoginSuccess, Name: "crave_auth_login_success_total", Help: "Successful password logins."},
	{ID: craveAuth.MetricLoginFailure, Name: "crave_auth_login_failure_total", Help: "Failed password logins."},
	{ID: craveAuth.MetricLoginRateLimited, Name: "crave_auth_login_rate_limited_total", Help: "Logins refused by the lockout window."},
	{ID: craveAuth.MetricRefreshSuccess, Name: "crave_auth_refresh_success_total", Help: "Successful token refreshes."},
	{ID: craveAuth.MetricRefreshFailure, Name: "crave_auth_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: craveAuth.MetricRefreshRateLimited, Name: "crave_auth_refresh_rate_limited_total", Help: "Throttled token refreshes."},
	{ID: craveAuth.MetricRateLimitHit, Name: "crave_auth_rate_limit_hit_total", Help: "Requests denied by any limiter."},
	{ID: craveAuth.MetricSessionCreated, Name: "crave_auth_session_created_total", Help: "Issued access and refresh token pairs."},
	{ID: craveAuth.MetricLogout, Name: "crave_auth_logout_total", Help: "Logouts."},
	{ID: craveAuth.MetricTokenBlacklisted, Name: "crave_auth_token_blacklisted_total", Help: "Access tokens added to the blacklist."},
	{ID: craveAuth.MetricBlacklistRejected, Name: "crave_auth_blacklist_rejected_total", Help: "Requests refused with a blacklisted token."},
	{ID: craveAuth.MetricOTPSent, Name: "crave_auth_otp_sent_total", Help: "Signup codes mailed."},
	{ID: craveAuth.MetricOTPVerified, Name: "crave_auth_otp_verified_total", Help: "Signup codes confirmed."},
	{ID: craveAuth.MetricOTPFailure, Name: "crave_auth_otp_failure_total", Help: "Wrong or expired signup codes."},
	{ID: craveAuth.MetricOTPAttemptsExceeded, Name: "crave_auth_otp_attempts_exceeded_total", Help: "Signup codes burned after too many attempts."},
	{ID: craveAuth.MetricRegisterSuccess, Name: "crave_auth_register_success_total", Help: "Accounts registered."},
	{ID: craveAuth.MetricRegisterDuplicate, Name: "crave_auth_register_duplicate_total", Help: "Registrations with an email already in use."},
	{ID: craveAuth.MetricRegisterRateLimited, Name: "crave_auth_register_rate_limited_total", Help: "Throttled registrations."},
	{ID: craveAuth.MetricGoogleLoginSuccess, Name: "crave_auth_google_login_success_total", Help: "Successful Google logins."},
	{ID: craveAuth.MetricGoogleLoginFailure, Name: "crave_auth_google_login_failure_total", Help: "Failed Google logins."},
	{ID: craveAuth.MetricGoogleAccountProvisioned, Name: "crave_auth_google_account_provisioned_total", Help: "Client accounts created by Google login."},
	{ID: craveAuth.MetricPasswordResetRequest, Name: "crave_auth_password_reset_request_total", Help: "Password reset links mailed."},
	{ID: craveAuth.MetricPasswordResetConfirmSuccess, Name: "crave_auth_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: craveAuth.MetricPasswordResetConfirmFailure, Name: "crave_auth_password_reset_confirm_failure_total", Help: "Rejected password resets."},
	{ID: craveAuth.MetricPasswordRehash, Name: "crave_auth_password_rehash_total", Help: "Stored hashes upgraded on login."},
	{ID: craveAuth.MetricAccountBlocked, Name: "crave_auth_account_blocked_total", Help: "Requests stopped by the block-status check."},
	{ID: craveAuth.MetricAccountStatusChange, Name: "crave_auth_account_status_change_total", Help: "Account status updates."},
}

var HistogramDefs = []HistogramDef{
	{ID: craveAuth.MetricValidateLatency, Name: "crave_auth_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramBounds are the upper bounds in seconds of the engine's eight
// latency buckets.
var HistogramBounds = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// CumulativeBuckets pads raw to eight buckets and turns it into running totals.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(out); i++ {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
