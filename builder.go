package craveAuth

import (
	"errors"
	"time"

	"github.com/CraveEvents/craveAuth/internal/limiters"
	"github.com/CraveEvents/craveAuth/internal/rate"
	"github.com/CraveEvents/craveAuth/internal/stores"
	"github.com/CraveEvents/craveAuth/jwt"
	"github.com/CraveEvents/craveAuth/password"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder collects the dependencies of an [Engine]. A Builder produces one
// Engine; a second Build call fails.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users         UserRepositories
	refreshTokens RefreshTokenRepository
	mailer        Mailer
	google        IDTokenVerifier
	auditSink     AuditSink
	logger        *zap.Logger

	built bool
}

// New starts a Builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserRepositories sets the client, vendor and admin collections. All
// three are required.
func (b *Builder) WithUserRepositories(repos UserRepositories) *Builder {
	b.users = repos
	return b
}

func (b *Builder) WithRefreshTokenRepository(repo RefreshTokenRepository) *Builder {
	b.refreshTokens = repo
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithGoogleVerifier enables [Engine.GoogleLogin].
func (b *Builder) WithGoogleVerifier(v IDTokenVerifier) *Builder {
	b.google = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users.Client == nil || b.users.Vendor == nil || b.users.Admin == nil {
		return nil, errors.New("user repositories for client, vendor and admin required")
	}
	if b.refreshTokens == nil {
		return nil, errors.New("refresh token repository required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}
	if b.google != nil && len(cfg.Google.ClientIDs) == 0 {
		return nil, errors.New("Google verifier requires Google ClientIDs")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- STORES --------
	engine := &Engine{
		config:        cfg,
		users:         b.users,
		refreshTokens: b.refreshTokens,
		mailer:        b.mailer,
		google:        b.google,
		otpStore:      stores.NewOTPStore(b.redis, cfg.Stores.OTPPrefix),
		verifiedStore: stores.NewVerifiedEmailStore(b.redis, cfg.Stores.VerifiedPrefix),
		blacklist:     stores.NewBlacklist(b.redis, cfg.Stores.BlacklistPrefix),
		resetStore:    stores.NewResetTokenStore(b.redis, cfg.Stores.ResetPrefix),
		logger:        logger.Named("craveauth"),
		now:           time.Now,
	}

	// -------- LIMITERS --------
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		Prefix:                  cfg.Stores.LimiterPrefix,
		EnableIPThrottle:        cfg.Security.EnableIPThrottle,
		EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
		MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
		MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
		RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
	})
	engine.otpLimiter = limiters.NewOTPLimiter(b.redis, limiters.RequestConfig{
		Prefix:                   cfg.Stores.LimiterPrefix,
		EnableIdentifierThrottle: true,
		EnableIPThrottle:         cfg.Security.EnableIPThrottle,
		Window:                   cfg.OTP.RequestWindow,
		MaxAttempts:              cfg.OTP.MaxRequests,
	})
	engine.resetLimiter = limiters.NewPasswordResetLimiter(b.redis, limiters.RequestConfig{
		Prefix:                   cfg.Stores.LimiterPrefix,
		EnableIdentifierThrottle: true,
		EnableIPThrottle:         cfg.Security.EnableIPThrottle,
		Window:                   cfg.PasswordReset.RequestWindow,
		MaxAttempts:              cfg.PasswordReset.MaxRequests,
	})
	engine.registerLimiter = limiters.NewRegistrationLimiter(b.redis, limiters.RequestConfig{
		Prefix:           cfg.Stores.LimiterPrefix,
		EnableIPThrottle: cfg.Security.EnableIPThrottle,
		Window:           cfg.Registration.Cooldown,
		MaxAttempts:      cfg.Registration.MaxAttempts,
	})

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	// -------- CRYPTO --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.passwords = hasher

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		ResetTTL:      cfg.JWT.ResetTTL,
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		ResetSecret:   cloneBytes(cfg.JWT.ResetSecret),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
