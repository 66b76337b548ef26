// Package jwt issues and verifies the HS256 tokens of a session: short-lived
// access tokens, long-lived refresh tokens, and single-use password reset
// tokens. Each kind signs with its own secret and carries a typ claim.
//
// # What this package must NOT do
//
//   - Track revocation; blacklisting and refresh persistence belong to the Engine.
//   - Accept any algorithm other than HS256.
package jwt
