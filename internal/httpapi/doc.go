// Package httpapi is the gin HTTP surface of the auth service: signup OTP,
// registration, login, Google login, refresh, logout, password reset and
// admin moderation, all mounted under /api/v_1.
package httpapi
