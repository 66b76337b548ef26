package craveAuth

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckAccountStatus returns the persisted status of userID in the
// collection of role.
func (e *Engine) CheckAccountStatus(ctx context.Context, role Role, userID string) (AccountStatus, error) {
	repo, err := e.repoFor(role)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", ErrInvalidRequest
	}
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// SetAccountStatus is the admin moderation hook. Blocking or rejecting an
// account also revokes all of its refresh tokens; access tokens already
// issued are stopped by the block-status check on their next request.
func (e *Engine) SetAccountStatus(ctx context.Context, role Role, userID string, status AccountStatus) error {
	repo, err := e.repoFor(role)
	if err != nil {
		return err
	}
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if userID == "" {
		return ErrInvalidRequest
	}

	err = repo.UpdateStatus(ctx, userID, status)
	if err == nil && (status == StatusBlocked || status == StatusRejected) {
		err = e.RevokeAllRefreshTokens(ctx, userID)
	}
	if err == nil {
		e.metricInc(MetricAccountStatusChange)
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, userID, role, err, func() map[string]string {
		return map[string]string{"status": string(status)}
	})
	return err
}

// RevokeBlockedSession ends the session a blocked user presented: the
// access token is blacklisted and the refresh token revoked, concurrently.
func (e *Engine) RevokeBlockedSession(ctx context.Context, auth AuthResult, accessToken, refreshToken string) error {
	e.metricInc(MetricAccountBlocked)

	g, gctx := errgroup.WithContext(ctx)
	if accessToken != "" {
		g.Go(func() error {
			return e.BlacklistAccessToken(gctx, accessToken)
		})
	}
	if refreshToken != "" {
		g.Go(func() error {
			return e.RevokeRefreshToken(gctx, refreshToken)
		})
	}
	err := g.Wait()
	if err != nil {
		e.logger.Warn("blocked session revocation incomplete",
			zap.String("user_id", auth.UserID),
			zap.Error(err),
		)
	}

	e.emitAudit(ctx, auditEventBlockedSessionRevoked, err == nil, auth.UserID, auth.Role, err, nil)
	return err
}
