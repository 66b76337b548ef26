package craveAuth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const welcomeMailTimeout = 30 * time.Second

// GoogleLogin signs in with a Google ID token issued for clientID.
//
// Existing accounts of role log in if active. A first-time client is
// provisioned from the token payload without a password; vendors must
// register before they can use Google.
func (e *Engine) GoogleLogin(ctx context.Context, credential, clientID string, role Role) (*LoginResult, error) {
	if e.google == nil {
		return nil, ErrGoogleDisabled
	}
	if e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if credential == "" || clientID == "" {
		return nil, ErrInvalidRequest
	}
	if !slices.Contains(e.config.Google.ClientIDs, clientID) {
		e.googleFailure(ctx, "", role, ErrGoogleAudience)
		return nil, ErrGoogleAudience
	}
	if !role.CanSelfRegister() {
		e.googleFailure(ctx, "", role, ErrInvalidRole)
		return nil, ErrInvalidRole
	}
	repo, err := e.repoFor(role)
	if err != nil {
		return nil, err
	}

	identity, err := e.google.Verify(ctx, credential, clientID)
	if err != nil {
		e.googleFailure(ctx, "", role, ErrGoogleTokenInvalid)
		return nil, fmt.Errorf("%w: %v", ErrGoogleTokenInvalid, err)
	}
	email := NormalizeEmail(identity.Email)
	if email == "" || !identity.EmailVerified {
		e.googleFailure(ctx, "", role, ErrGoogleTokenInvalid)
		return nil, ErrGoogleTokenInvalid
	}

	user, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Status != StatusActive {
			e.googleFailure(ctx, user.UserID, role, ErrAccountBlocked)
			return nil, ErrAccountBlocked
		}
	case errors.Is(err, ErrUserNotFound):
		user, err = e.provisionGoogleClient(ctx, repo, role, email, identity)
		if err != nil {
			e.googleFailure(ctx, "", role, err)
			return nil, err
		}
	default:
		return nil, err
	}

	tokens, err := e.issueSessionTokens(ctx, user)
	if err != nil {
		e.googleFailure(ctx, user.UserID, role, err)
		return nil, err
	}

	e.metricInc(MetricGoogleLoginSuccess)
	e.emitAudit(ctx, auditEventGoogleLoginSuccess, true, user.UserID, role, nil, func() map[string]string {
		return map[string]string{"method": "google"}
	})
	return &LoginResult{User: user.Sanitize(), Tokens: *tokens}, nil
}

func (e *Engine) provisionGoogleClient(ctx context.Context, repo UserRepository, role Role, email string, identity *GoogleIdentity) (*User, error) {
	if role == RoleVendor {
		return nil, ErrVendorGoogleSignup
	}

	registered, err := e.emailRegistered(ctx, email)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrEmailExists
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user := &User{
		Name:           name,
		Email:          email,
		Role:           RoleClient,
		Status:         StatusActive,
		GoogleID:       identity.Subject,
		GoogleVerified: true,
		ProfileImage:   identity.Picture,
	}
	if err := e.createAccount(ctx, repo, user); err != nil {
		return nil, err
	}

	e.metricInc(MetricGoogleAccountProvisioned)
	e.emitAudit(ctx, auditEventGoogleProvisioned, true, user.UserID, role, nil, nil)
	e.sendWelcome(user.Email, user.Name)
	return user, nil
}

// sendWelcome delivers the welcome mail in the background. Close waits for
// pending deliveries.
func (e *Engine) sendWelcome(to, name string) {
	if e.mailer == nil {
		return
	}
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), welcomeMailTimeout)
		defer cancel()
		if err := e.mailer.SendWelcome(ctx, to, name); err != nil {
			e.logger.Warn("welcome mail failed", zap.String("to", to), zap.Error(err))
		}
	}()
}

func (e *Engine) googleFailure(ctx context.Context, userID string, role Role, err error) {
	e.metricInc(MetricGoogleLoginFailure)
	e.emitAudit(ctx, auditEventGoogleLoginFailure, false, userID, role, err, nil)
}
