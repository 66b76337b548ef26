// Package internal contains helper utilities that are private to craveAuth:
// OTP and user id generation and token hashing.
//
// # Sub-packages
//
//   - config: environment loading for the craveauth binary
//   - httpapi: gin routes and request binding of the auth API
//   - limiters: request limiters for OTP, register, and reset
//   - rate: core Redis-backed fixed-window limit primitives
//   - stores: Redis records for OTPs, verified emails, the blacklist, and reset tokens
//   - testkit: in-memory repositories and a miniredis-backed Engine for tests
//
// # What this package must NOT do
//
//   - Export types that appear in the public craveAuth API.
//   - Be imported by any package outside the craveAuth module.
package internal
