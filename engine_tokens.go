package craveAuth

import (
	"context"
	"fmt"

	"github.com/CraveEvents/craveAuth/internal"
)

// issueSessionTokens signs an access/refresh pair for user and persists the
// refresh record.
func (e *Engine) issueSessionTokens(ctx context.Context, user *User) (*SessionTokens, error) {
	access, accessExp, err := e.jwtManager.IssueAccess(user.UserID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	refresh, refreshExp, err := e.jwtManager.IssueRefresh(user.UserID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	if err := e.refreshTokens.Save(ctx, RefreshTokenRecord{
		UserID:    user.UserID,
		Role:      user.Role,
		Token:     refresh,
		ExpiresAt: refreshExp,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	e.metricInc(MetricSessionCreated)
	return &SessionTokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// BlacklistAccessToken blocks accessToken until it expires. Expired tokens
// need no entry and return nil.
func (e *Engine) BlacklistAccessToken(ctx context.Context, accessToken string) error {
	if e.blacklist == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	claims, err := e.jwtManager.DecodeAccess(accessToken)
	if err != nil {
		return tokenError(err)
	}
	if claims.ExpiresAt == nil {
		return ErrTokenExpired
	}

	ttl := claims.ExpiresAt.Time.Sub(e.now())
	if ttl <= 0 {
		return nil
	}
	if err := e.blacklist.Add(ctx, internal.HashToken(accessToken), ttl); err != nil {
		return wrapUnavailable(ErrBlacklistUnavailable, err)
	}
	e.metricInc(MetricTokenBlacklisted)
	return nil
}

// IsBlacklisted reports whether accessToken was blacklisted.
func (e *Engine) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	if e.blacklist == nil {
		return false, ErrEngineNotReady
	}
	found, err := e.blacklist.Contains(ctx, internal.HashToken(accessToken))
	if err != nil {
		return false, wrapUnavailable(ErrBlacklistUnavailable, err)
	}
	return found, nil
}

// RevokeRefreshToken deletes the persisted record of refreshToken. Unknown
// tokens are not an error.
func (e *Engine) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if e.refreshTokens == nil {
		return ErrEngineNotReady
	}
	if err := e.refreshTokens.Revoke(ctx, refreshToken); err != nil {
		return wrapUnavailable(ErrSessionStoreUnavailable, err)
	}
	return nil
}

// RevokeAllRefreshTokens ends every session of userID at its next refresh.
func (e *Engine) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	if e.refreshTokens == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrInvalidRequest
	}
	if err := e.refreshTokens.RevokeAllForUser(ctx, userID); err != nil {
		return wrapUnavailable(ErrSessionStoreUnavailable, err)
	}
	return nil
}

func wrapUnavailable(sentinel, err error) error {
	return fmt.Errorf("%w: %v", sentinel, err)
}
