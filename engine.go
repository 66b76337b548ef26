package craveAuth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/CraveEvents/craveAuth/internal/limiters"
	"github.com/CraveEvents/craveAuth/internal/rate"
	"github.com/CraveEvents/craveAuth/internal/stores"
	"github.com/CraveEvents/craveAuth/jwt"
	"github.com/CraveEvents/craveAuth/password"
	"go.uber.org/zap"
)

// Engine runs the Crave Events authentication flows: signup OTP,
// registration, password and Google login, refresh rotation, logout,
// blacklisting, password reset and account moderation.
//
// An Engine is built once with [Builder] and is safe for concurrent use.
type Engine struct {
	config Config

	users         UserRepositories
	refreshTokens RefreshTokenRepository
	mailer        Mailer
	google        IDTokenVerifier

	otpStore      *stores.OTPStore
	verifiedStore *stores.VerifiedEmailStore
	blacklist     *stores.Blacklist
	resetStore    *stores.ResetTokenStore

	rateLimiter     *rate.Limiter
	otpLimiter      *limiters.RequestLimiter
	resetLimiter    *limiters.RequestLimiter
	registerLimiter *limiters.RequestLimiter

	audit      *auditDispatcher
	metrics    *Metrics
	passwords  *password.Hasher
	jwtManager *jwt.Manager
	logger     *zap.Logger
	now        func() time.Time

	background sync.WaitGroup
}

// CookiePolicy is what the HTTP layer needs to set session cookies.
type CookiePolicy struct {
	Secure        bool
	Domain        string
	SameSite      http.SameSite
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// Close waits for background mail deliveries and drains the audit buffer.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.background.Wait()
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) CookiePolicy() CookiePolicy {
	return CookiePolicy{
		Secure:        e.config.Cookie.Secure,
		Domain:        e.config.Cookie.Domain,
		SameSite:      e.config.Cookie.SameSite,
		AccessMaxAge:  e.config.JWT.AccessTTL,
		RefreshMaxAge: e.config.JWT.RefreshTTL,
	}
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) repoFor(role Role) (UserRepository, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	repo, ok := e.users.forRole(role)
	if !ok {
		return nil, ErrEngineNotReady
	}
	return repo, nil
}

// statusError maps a non-active status to the error every login path returns.
func statusError(status AccountStatus) error {
	switch status {
	case StatusActive:
		return nil
	case StatusPending:
		return ErrAccountUnderVerification
	case StatusBlocked:
		return ErrAccountBlocked
	case StatusRejected:
		return ErrAccountRejected
	default:
		return ErrInvalidStatus
	}
}

// Login authenticates email and password against the collection of role.
//
// Failures are counted per role+email and per client IP (see [WithClientIP]).
// Password is verified before status, so a wrong password never reveals
// whether an account is pending or blocked.
func (e *Engine) Login(ctx context.Context, role Role, email, password string) (*LoginResult, error) {
	if e.passwords == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	repo, err := e.repoFor(role)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", role, err, nil)
		return nil, err
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidRequest
	}

	ip := clientIPFromContext(ctx)
	identifier := string(role) + ":" + email

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				e.logger.Warn("login limiter unavailable", zap.Error(err))
			}
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", role, ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			e.emitRateLimit(ctx, "login", role, email)
			return nil, ErrLoginRateLimited
		}
	}

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.recordLoginFailure(ctx, identifier, ip, "", role, ErrUserNotFound)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	ok, err := e.passwords.Verify(password, user.PasswordHash)
	if err != nil {
		e.logger.Warn("stored password hash not verifiable",
			zap.String("user_id", user.UserID),
			zap.Error(err),
		)
	}
	if !ok {
		e.recordLoginFailure(ctx, identifier, ip, user.UserID, role, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := statusError(user.Status); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, role, err, nil)
		return nil, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, identifier); err != nil {
			e.logger.Warn("login limiter reset failed", zap.String("user_id", user.UserID), zap.Error(err))
		}
	}

	e.upgradePasswordHash(ctx, repo, user, password)

	tokens, err := e.issueSessionTokens(ctx, user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, role, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, role, nil, func() map[string]string {
		return map[string]string{"method": "password"}
	})

	return &LoginResult{User: user.Sanitize(), Tokens: *tokens}, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, identifier, ip, userID string, role Role, cause error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, role, cause, nil)
	if e.rateLimiter == nil {
		return
	}
	if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		e.logger.Warn("login limiter increment failed", zap.Error(err))
	}
}

// upgradePasswordHash replaces bcrypt or outdated argon2 hashes after a
// successful login. Failures are logged and never fail the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, repo UserRepository, user *User, plain string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	needs, err := e.passwords.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	newHash, err := e.passwords.Hash(plain)
	if err != nil {
		e.logger.Warn("password rehash failed", zap.String("user_id", user.UserID), zap.Error(err))
		return
	}
	if err := repo.UpdatePassword(ctx, user.UserID, newHash); err != nil {
		e.logger.Warn("password rehash not persisted", zap.String("user_id", user.UserID), zap.Error(err))
		return
	}
	user.PasswordHash = newHash
	e.metricInc(MetricPasswordRehash)
}

// Refresh exchanges a refresh token for a new token pair. The presented
// token is consumed, so each refresh token works exactly once.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e.jwtManager == nil || e.refreshTokens == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		err = tokenError(err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", err, nil)
		return nil, err
	}
	role := Role(claims.Role)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRefresh(ctx, claims.UID); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				e.logger.Warn("refresh limiter unavailable", zap.Error(err))
			}
			e.metricInc(MetricRefreshRateLimited)
			e.emitAudit(ctx, auditEventRefreshRateLimited, false, claims.UID, role, ErrRefreshRateLimited, nil)
			e.emitRateLimit(ctx, "refresh", role, claims.UID)
			return nil, ErrRefreshRateLimited
		}
	}

	found, err := e.refreshTokens.Consume(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, wrapUnavailable(ErrSessionStoreUnavailable, err)
	}
	if !found {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UID, role, ErrRefreshTokenRevoked, nil)
		return nil, ErrRefreshTokenRevoked
	}

	repo, err := e.repoFor(role)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	user, err := repo.FindByID(ctx, claims.UID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	if err := statusError(user.Status); err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.UserID, role, err, nil)
		return nil, err
	}

	tokens, err := e.issueSessionTokens(ctx, user)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.UserID, role, nil, nil)
	return &LoginResult{User: user.Sanitize(), Tokens: *tokens}, nil
}

// ValidateAccess verifies an access token and checks the blacklist. A Redis
// failure rejects the token with [ErrBlacklistUnavailable].
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}
	if accessToken == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return nil, tokenError(err)
	}

	blacklisted, err := e.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		e.metricInc(MetricBlacklistRejected)
		return nil, ErrTokenBlacklisted
	}

	return authResult(claims), nil
}

// DecodeAccess verifies the signature of an access token but accepts it
// after expiry. Logout and refresh routes use it to identify the caller.
func (e *Engine) DecodeAccess(accessToken string) (*AuthResult, error) {
	if e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := e.jwtManager.DecodeAccess(accessToken)
	if err != nil {
		return nil, tokenError(err)
	}
	return authResult(claims), nil
}

// Logout revokes the refresh token and blacklists the access token for the
// rest of its lifetime. Either token may be empty.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var userID string
	var role Role

	if refreshToken != "" {
		if err := e.RevokeRefreshToken(ctx, refreshToken); err != nil {
			return err
		}
	}
	if accessToken != "" {
		if res, err := e.DecodeAccess(accessToken); err == nil {
			userID, role = res.UserID, res.Role
		}
		if err := e.BlacklistAccessToken(ctx, accessToken); err != nil {
			return err
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, role, nil, nil)
	return nil
}

func authResult(claims *jwt.Claims) *AuthResult {
	res := &AuthResult{
		UserID: claims.UID,
		Email:  claims.Email,
		Role:   Role(claims.Role),
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time
	}
	return res
}

func tokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}
