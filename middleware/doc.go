// Package middleware adapts craveAuth.Engine to gin.
//
// # Guards
//
//   - [VerifyAuth] requires a valid access token from the role-named cookie.
//   - [DecodeToken] accepts an expired but correctly signed access token.
//   - [AuthorizeRole] restricts a route to a set of roles.
//   - [BlockStatus] ends the session of a blocked account.
//   - [RequestContext] forwards client IP and User-Agent to the Engine.
//
// Cookies are named "<role>_access_token" and "<role>_refresh_token"; the
// role is taken from the request path. Errors are written as
// {"success": false, "message": ...} using [StatusFor].
//
// This package does not parse JWTs or touch Redis itself. Every decision is
// delegated to the Engine.
package middleware
