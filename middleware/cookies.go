package middleware

import (
	"net/http"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/gin-gonic/gin"
)

// AccessCookieName returns the cookie carrying the access token of role.
func AccessCookieName(role craveAuth.Role) string {
	return string(role) + "_access_token"
}

// RefreshCookieName returns the cookie carrying the refresh token of role.
func RefreshCookieName(role craveAuth.Role) string {
	return string(role) + "_refresh_token"
}

// SetAuthCookies writes the role-named HttpOnly session cookies.
func SetAuthCookies(c *gin.Context, policy craveAuth.CookiePolicy, role craveAuth.Role, tokens craveAuth.SessionTokens) {
	sameSite := policy.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteStrictMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessCookieName(role), tokens.AccessToken, int(policy.AccessMaxAge.Seconds()), "/", policy.Domain, policy.Secure, true)
	c.SetCookie(RefreshCookieName(role), tokens.RefreshToken, int(policy.RefreshMaxAge.Seconds()), "/", policy.Domain, policy.Secure, true)
}

// ClearAuthCookies expires both session cookies of role.
func ClearAuthCookies(c *gin.Context, policy craveAuth.CookiePolicy, role craveAuth.Role) {
	sameSite := policy.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteStrictMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(AccessCookieName(role), "", -1, "/", policy.Domain, policy.Secure, true)
	c.SetCookie(RefreshCookieName(role), "", -1, "/", policy.Domain, policy.Secure, true)
}

func readCookies(c *gin.Context, role craveAuth.Role) (access, refresh string) {
	access, _ = c.Cookie(AccessCookieName(role))
	refresh, _ = c.Cookie(RefreshCookieName(role))
	return access, refresh
}
