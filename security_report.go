package craveAuth

import (
	"net/http"
	"time"
)

// SecurityReport summarizes the security-relevant settings of an Engine.
// Warnings lists settings that are acceptable in development only.
type SecurityReport struct {
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	ResetTTL                time.Duration
	Argon2                  PasswordConfigReport
	LegacyHashUpgrade       bool
	RateLimitingActive      bool
	RefreshThrottleActive   bool
	EmailVerificationActive bool
	PasswordResetActive     bool
	GoogleSignInActive      bool
	SecureCookies           bool
	AuditActive             bool
	Warnings                []string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

const recommendedArgon2Memory = 64 * 1024

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	report := SecurityReport{
		SigningAlgorithm: "HS256",
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		ResetTTL:         cfg.JWT.ResetTTL,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		LegacyHashUpgrade:       cfg.Password.UpgradeOnLogin,
		RateLimitingActive:      cfg.Security.MaxLoginAttempts > 0 && cfg.Security.LoginCooldownDuration > 0,
		RefreshThrottleActive:   cfg.Security.EnableRefreshThrottle,
		EmailVerificationActive: cfg.Registration.RequireVerifiedEmail,
		PasswordResetActive:     cfg.PasswordReset.Enabled,
		GoogleSignInActive:      e.google != nil,
		SecureCookies:           cfg.Cookie.Secure,
		AuditActive:             cfg.Audit.Enabled,
	}

	if !cfg.Cookie.Secure {
		report.Warnings = append(report.Warnings, "session cookies are sent over plain HTTP")
	}
	if cfg.Cookie.SameSite == http.SameSiteNoneMode && !cfg.Cookie.Secure {
		report.Warnings = append(report.Warnings, "SameSite=None cookies require Secure")
	}
	if cfg.Password.Memory < recommendedArgon2Memory {
		report.Warnings = append(report.Warnings, "argon2 memory below 64 MiB")
	}
	if !cfg.Registration.RequireVerifiedEmail {
		report.Warnings = append(report.Warnings, "registration does not require a verified email")
	}
	if !cfg.Security.EnableRefreshThrottle {
		report.Warnings = append(report.Warnings, "refresh throttling disabled")
	}
	return report
}
