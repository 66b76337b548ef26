// Package limiters provides the Redis fixed-window request budgets that guard
// flows which send mail or create records: signup OTP requests, password
// reset requests, and registration.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit. Keys: <prefix>:<scope>:id:<identifier> and
// <prefix>:<scope>:ip:<ip>.
//
// # What this package must NOT do
//
//   - Decide what happens after a limit is hit (the Engine maps errors).
//   - Be imported outside the craveAuth module.
package limiters
