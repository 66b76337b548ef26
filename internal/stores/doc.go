// Package stores provides Redis-backed, short-lived records for the auth
// flows: signup OTPs, the verified-email marker, the access-token blacklist,
// and password reset tokens.
//
// # Design
//
// Every record carries a TTL and is keyed by a prefix plus the normalized
// email, user id, or token hash. Compare-and-delete paths (OTP, reset) run
// as Lua scripts so a code or token can be consumed only once even under
// concurrent submissions. Secrets are stored hashed; the caller hashes
// before calling in.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT generate codes or tokens,
// enforce request rate limits, or make authentication decisions; those
// belong to the Engine.
//
// # What this package must NOT do
//
//   - Import craveAuth or any sibling internal package.
//   - Store plaintext OTPs or bearer tokens.
package stores
