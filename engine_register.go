package craveAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/CraveEvents/craveAuth/internal"
	"github.com/CraveEvents/craveAuth/internal/limiters"
	"github.com/CraveEvents/craveAuth/password"
	"go.uber.org/zap"
)

// Register creates a client or vendor account. Clients start active and
// vendors start pending until an admin approves them.
//
// With Registration.RequireVerifiedEmail the address must have passed
// [Engine.VerifySignupOTP]; the verification is consumed here.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	if e.passwords == nil {
		return nil, ErrEngineNotReady
	}
	if !req.Role.CanSelfRegister() {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Role, ErrInvalidRole, nil)
		return nil, ErrInvalidRole
	}
	repo, err := e.repoFor(req.Role)
	if err != nil {
		return nil, err
	}

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || req.Password == "" {
		return nil, ErrInvalidRequest
	}
	if req.Role == RoleVendor && strings.TrimSpace(req.IDProof) == "" {
		return nil, ErrInvalidRequest
	}

	if err := e.registerLimiter.CheckRequest(ctx, email, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrRateLimited) {
			e.metricInc(MetricRegisterRateLimited)
			e.emitRateLimit(ctx, "register", req.Role, email)
			return nil, ErrRegisterRateLimited
		}
		return nil, wrapUnavailable(ErrRegisterRateLimited, err)
	}

	registered, err := e.emailRegistered(ctx, email)
	if err != nil {
		return nil, err
	}
	if registered {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Role, ErrEmailExists, nil)
		return nil, ErrEmailExists
	}

	if e.config.Registration.RequireVerifiedEmail {
		verified, err := e.verifiedStore.Consume(ctx, email)
		if err != nil {
			return nil, wrapUnavailable(ErrOTPUnavailable, err)
		}
		if !verified {
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Role, ErrEmailNotVerified, nil)
			return nil, ErrEmailNotVerified
		}
	}

	hash, err := e.passwords.Hash(req.Password)
	if err != nil {
		e.restoreVerified(ctx, email)
		if errors.Is(err, password.ErrPasswordLength) {
			return nil, ErrPasswordPolicy
		}
		return nil, err
	}

	user := &User{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         req.Role,
		Status:       DefaultStatus(req.Role),
	}
	if req.Role == RoleVendor {
		user.IDProof = strings.TrimSpace(req.IDProof)
		user.AboutVendor = strings.TrimSpace(req.AboutVendor)
	}

	if err := e.createAccount(ctx, repo, user); err != nil {
		if !errors.Is(err, ErrEmailExists) {
			e.restoreVerified(ctx, email)
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", req.Role, err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.UserID, req.Role, nil, nil)

	profile := user.Sanitize()
	return &profile, nil
}

// createAccount assigns the id and timestamps and inserts user.
func (e *Engine) createAccount(ctx context.Context, repo UserRepository, user *User) error {
	id, err := internal.NewUserID(string(user.Role))
	if err != nil {
		return err
	}
	now := e.now().UTC()
	user.UserID = id
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			e.metricInc(MetricRegisterDuplicate)
		}
		return err
	}
	return nil
}

// restoreVerified puts back a consumed verification marker when account
// creation failed for a reason the user cannot fix by verifying again.
func (e *Engine) restoreVerified(ctx context.Context, email string) {
	if !e.config.Registration.RequireVerifiedEmail {
		return
	}
	if err := e.verifiedStore.Mark(ctx, email, e.config.OTP.VerifiedTTL); err != nil {
		e.logger.Warn("verified email marker not restored", zap.Error(err))
	}
}
