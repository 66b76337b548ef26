package middleware

import (
	"context"
	"fmt"
	"net/http"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/gin-gonic/gin"
)

// StatusChecker is the part of *craveAuth.Engine BlockStatus uses.
type StatusChecker interface {
	CheckAccountStatus(ctx context.Context, role craveAuth.Role, userID string) (craveAuth.AccountStatus, error)
	RevokeBlockedSession(ctx context.Context, auth craveAuth.AuthResult, accessToken, refreshToken string) error
	CookiePolicy() craveAuth.CookiePolicy
}

// BlockStatus rejects sessions of blocked accounts. It must run after
// VerifyAuth or DecodeToken. A blocked caller loses both tokens and both
// cookies before the 403 is written.
func BlockStatus(engine StatusChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			Fail(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}

		ctx := c.Request.Context()
		status, err := engine.CheckAccountStatus(ctx, sess.Role, sess.UserID)
		if err != nil {
			FailWith(c, err)
			return
		}
		if status != craveAuth.StatusBlocked {
			c.Next()
			return
		}

		if err := engine.RevokeBlockedSession(ctx, sess.AuthResult, sess.AccessToken, sess.RefreshToken); err != nil {
			// Status is rechecked on every request; a failed revoke is recorded only.
			_ = c.Error(fmt.Errorf("revoke blocked session: %w", err))
		}
		ClearAuthCookies(c, engine.CookiePolicy(), sess.Role)
		Fail(c, http.StatusForbidden, MsgAccountBlockedAbort)
	}
}
