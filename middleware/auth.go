package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/gin-gonic/gin"
)

const sessionKey = "craveAuth.session"

// Authenticator is the part of *craveAuth.Engine the auth guards use.
type Authenticator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*craveAuth.AuthResult, error)
	DecodeAccess(accessToken string) (*craveAuth.AuthResult, error)
	IsBlacklisted(ctx context.Context, accessToken string) (bool, error)
}

// Session is what VerifyAuth and DecodeToken leave on the gin context. The
// raw tokens ride along so logout and block handling can revoke them.
type Session struct {
	craveAuth.AuthResult
	AccessToken  string
	RefreshToken string
}

// SessionFrom returns the Session stored by VerifyAuth or DecodeToken.
func SessionFrom(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok && sess != nil
}

// VerifyAuth requires a live, non-blacklisted access token in the cookie of
// the role named by the request path (".../client/..." reads
// client_access_token).
func VerifyAuth(engine Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromPath(c.Request.URL.Path)
		if !ok {
			Fail(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		access, refresh := readCookies(c, role)
		if access == "" {
			Fail(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}

		res, err := engine.ValidateAccess(c.Request.Context(), access)
		if err != nil {
			FailWith(c, err)
			return
		}
		if res.UserID == "" || res.Role != role {
			FailWith(c, craveAuth.ErrTokenInvalid)
			return
		}

		c.Set(sessionKey, &Session{AuthResult: *res, AccessToken: access, RefreshToken: refresh})
		c.Next()
	}
}

// DecodeToken is VerifyAuth for routes that must work with an expired
// access token, such as logout. The signature and blacklist are still
// checked.
func DecodeToken(engine Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromPath(c.Request.URL.Path)
		if !ok {
			Fail(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		access, refresh := readCookies(c, role)
		if access == "" {
			Fail(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}

		blacklisted, err := engine.IsBlacklisted(c.Request.Context(), access)
		if err != nil {
			FailWith(c, err)
			return
		}
		if blacklisted {
			FailWith(c, craveAuth.ErrTokenBlacklisted)
			return
		}

		res, err := engine.DecodeAccess(access)
		if err != nil {
			FailWith(c, err)
			return
		}
		if res.Role != role {
			FailWith(c, craveAuth.ErrTokenInvalid)
			return
		}

		c.Set(sessionKey, &Session{AuthResult: *res, AccessToken: access, RefreshToken: refresh})
		c.Next()
	}
}

// AuthorizeRole lets the request through only when the session role is one
// of roles.
func AuthorizeRole(roles ...craveAuth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok || !slices.Contains(roles, sess.Role) {
			Fail(c, http.StatusForbidden, MsgNotAllowed)
			return
		}
		c.Next()
	}
}

// RequestContext copies the client IP and User-Agent into the request
// context, where the Engine picks them up for throttling and audit.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := craveAuth.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = craveAuth.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RoleFromPath returns the first path segment that names a role.
func RoleFromPath(path string) (craveAuth.Role, bool) {
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if role := craveAuth.Role(seg); role.Valid() {
			return role, true
		}
	}
	return "", false
}
