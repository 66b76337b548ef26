// Package craveAuth is the authentication core of Crave Events. It serves
// three account roles (client, vendor, admin), each in its own user
// collection, and issues JWT access/refresh pairs carried in role-named
// HttpOnly cookies.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Flows
//
//   - Signup: [Engine.SendSignupOTP], [Engine.VerifySignupOTP], [Engine.Register].
//     Vendors start pending and wait for an admin through [Engine.SetAccountStatus].
//   - Sessions: [Engine.Login], [Engine.GoogleLogin], [Engine.Refresh], [Engine.Logout].
//   - Recovery: [Engine.RequestPasswordReset], [Engine.ResetPassword].
//   - Guards: [Engine.ValidateAccess], [Engine.DecodeAccess], [Engine.CheckAccountStatus].
//
// # Architecture boundaries
//
// craveAuth is the public surface. It exposes [Engine], [Builder], [Config], and value types.
// Short-lived state (OTPs, the verified-email marker, the blacklist, reset records,
// rate limits) lives in Redis under internal/. Users and refresh tokens are reached
// through [UserRepository] and [RefreshTokenRepository]; mongostore implements both.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or key layouts in its public API.
//   - Import gin or any HTTP framework; the middleware package adapts the Engine.
//   - Return password hashes or raw tokens in audit events or logs.
//
// # Performance contract
//
// ValidateAccess is the hot path: one Redis EXISTS against the blacklist.
// DecodeAccess does no I/O. Refresh adds at most two Redis commands for its
// throttle on top of the repository calls.
package craveAuth
