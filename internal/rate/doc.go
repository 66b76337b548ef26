// Package rate throttles password login and token refresh with Redis
// fixed-window counters.
//
// Keys:
//   - <prefix>:login:<role>:<email>   failed logins per account
//   - <prefix>:login-ip:<ip>          failed logins per client IP
//   - <prefix>:refresh:<userId>       refresh calls per user
//
// Request budgets for OTP, reset and registration live in internal/limiters.
package rate
