package craveAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config holds every tunable of the engine. Build copies it; later changes
// to the caller's value have no effect.
type Config struct {
	JWT           JWTConfig
	OTP           OTPConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Registration  RegistrationConfig
	Google        GoogleConfig
	Security      SecurityConfig
	Cookie        CookieConfig
	Frontend      FrontendConfig
	Stores        StoreConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the three token kinds. Each kind signs with its own
// secret so a leaked reset secret cannot mint sessions.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig configures the signup one-time codes.
type OTPConfig struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
	// VerifiedTTL is how long a confirmed email stays eligible for registration.
	VerifiedTTL time.Duration
	// MaxRequests caps code requests per email and per IP within RequestWindow.
	MaxRequests   int
	RequestWindow time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig configures argon2id hashing of new passwords. Legacy
// bcrypt hashes are always accepted and upgraded when UpgradeOnLogin is set.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

// PasswordResetConfig configures forgot/reset password.
type PasswordResetConfig struct {
	Enabled       bool
	MaxRequests   int
	RequestWindow time.Duration
	// RevokeSessions drops every refresh token of the user after a reset.
	RevokeSessions bool
}

// RegistrationConfig configures self-service signup.
type RegistrationConfig struct {
	// RequireVerifiedEmail makes Register consume the marker left by VerifySignupOTP.
	RequireVerifiedEmail bool
	MaxAttempts          int
	Cooldown             time.Duration
}

// GoogleConfig lists the OAuth client ids accepted as ID-token audiences.
type GoogleConfig struct {
	ClientIDs []string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds login and refresh throttling.
type SecurityConfig struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// CookieConfig configures the role-named session cookies.
type CookieConfig struct {
	Secure   bool
	Domain   string
	SameSite http.SameSite
}

// FrontendConfig is used to build links in outbound mail.
type FrontendConfig struct {
	Origin string
}

// StoreConfig sets the Redis key prefixes.
type StoreConfig struct {
	OTPPrefix       string
	VerifiedPrefix  string
	BlacklistPrefix string
	ResetPrefix     string
	LimiterPrefix   string
}

// AuditConfig configures the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. Secrets are left empty and
// must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			ResetTTL:   15 * time.Minute,
			Issuer:     "crave-events",
			Leeway:     5 * time.Second,
		},
		OTP: OTPConfig{
			Digits:        6,
			TTL:           5 * time.Minute,
			MaxAttempts:   5,
			VerifiedTTL:   15 * time.Minute,
			MaxRequests:   5,
			RequestWindow: 15 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:        true,
			MaxRequests:    5,
			RequestWindow:  15 * time.Minute,
			RevokeSessions: true,
		},
		Registration: RegistrationConfig{
			RequireVerifiedEmail: true,
			MaxAttempts:          10,
			Cooldown:             15 * time.Minute,
		},
		Security: SecurityConfig{
			EnableIPThrottle:        true,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		},
		Cookie: CookieConfig{
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		},
		Frontend: FrontendConfig{
			Origin: "http://localhost:5173",
		},
		Stores: StoreConfig{
			OTPPrefix:       "otp",
			VerifiedPrefix:  "otpv",
			BlacklistPrefix: "bl",
			ResetPrefix:     "reset",
			LimiterPrefix:   "rl",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.JWT.ResetSecret = cloneBytes(cfg.JWT.ResetSecret)
	if cfg.Google.ClientIDs != nil {
		out.Google.ClientIDs = append([]string(nil), cfg.Google.ClientIDs...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for values the engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.ResetTTL <= 0 {
		return errors.New("JWT TTLs must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}
	if len(c.JWT.AccessSecret) < 32 || len(c.JWT.RefreshSecret) < 32 || len(c.JWT.ResetSecret) < 32 {
		return errors.New("JWT secrets must be at least 32 bytes")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) ||
		string(c.JWT.AccessSecret) == string(c.JWT.ResetSecret) ||
		string(c.JWT.RefreshSecret) == string(c.JWT.ResetSecret) {
		return errors.New("JWT secrets must be distinct")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// OTP
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 || c.OTP.TTL > 15*time.Minute {
		return errors.New("OTP TTL must be within (0, 15m]")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.VerifiedTTL <= 0 {
		return errors.New("OTP VerifiedTTL must be > 0")
	}
	if c.OTP.MaxRequests <= 0 || c.OTP.RequestWindow <= 0 {
		return errors.New("OTP request limits must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	if c.PasswordReset.Enabled {
		if c.PasswordReset.MaxRequests <= 0 || c.PasswordReset.RequestWindow <= 0 {
			return errors.New("PasswordReset request limits must be > 0")
		}
		if strings.TrimSpace(c.Frontend.Origin) == "" {
			return errors.New("PasswordReset requires Frontend Origin")
		}
	}

	if c.Registration.MaxAttempts <= 0 || c.Registration.Cooldown <= 0 {
		return errors.New("Registration limits must be > 0")
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 || c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security login limits must be > 0")
	}
	if c.Security.EnableRefreshThrottle &&
		(c.Security.MaxRefreshAttempts <= 0 || c.Security.RefreshCooldownDuration <= 0) {
		return errors.New("Security refresh limits must be > 0 when EnableRefreshThrottle is true")
	}

	for _, id := range c.Google.ClientIDs {
		if strings.TrimSpace(id) == "" {
			return errors.New("Google ClientIDs must not contain empty entries")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
