// Package config loads the auth service settings from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/mailer"
	"github.com/joho/godotenv"
)

// Config is everything the server binary needs.
type Config struct {
	Port           string
	AllowedOrigins []string
	MongoURI       string
	MongoDatabase  string
	RedisURL       string
	LogFormat      string
	LogLevel       string
	MetricsEnabled bool
	OTelEnabled    bool

	// SMTP is nil when no relay is configured; mail is then only logged.
	SMTP *mailer.SMTPConfig

	Auth craveAuth.Config
}

// Load reads envFile (if non-empty and present) into the process
// environment without overriding variables already set, then builds a
// Config from the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	var p parser

	cfg := &Config{
		Port:           p.str("PORT", "5003"),
		AllowedOrigins: p.list("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		MongoURI:       p.str("MONGODB_URI", ""),
		MongoDatabase:  p.str("MONGODB_DB", "craveEvents"),
		RedisURL:       p.str("REDIS_URL", "redis://localhost:6379/0"),
		LogFormat:      p.str("LOG_FORMAT", "json"),
		LogLevel:       p.str("LOG_LEVEL", "info"),
		MetricsEnabled: p.bool("METRICS_ENABLED", true),
		OTelEnabled:    p.bool("OTEL_METRICS_ENABLED", false),
	}
	if cfg.MongoURI == "" {
		p.fail("MONGODB_URI is required")
	}

	auth := craveAuth.DefaultConfig()
	auth.JWT.AccessSecret = []byte(p.str("JWT_ACCESS_SECRET", ""))
	auth.JWT.RefreshSecret = []byte(p.str("JWT_REFRESH_SECRET", ""))
	auth.JWT.ResetSecret = []byte(p.str("JWT_RESET_SECRET", ""))
	auth.JWT.AccessTTL = p.duration("ACCESS_TOKEN_TTL", auth.JWT.AccessTTL)
	auth.JWT.RefreshTTL = p.duration("REFRESH_TOKEN_TTL", auth.JWT.RefreshTTL)
	auth.JWT.ResetTTL = p.duration("RESET_TOKEN_TTL", auth.JWT.ResetTTL)
	auth.OTP.TTL = p.duration("OTP_TTL", auth.OTP.TTL)
	auth.Google.ClientIDs = p.list("GOOGLE_CLIENT_IDS", nil)
	auth.Cookie.Secure = p.bool("COOKIE_SECURE", auth.Cookie.Secure)
	auth.Cookie.Domain = p.str("COOKIE_DOMAIN", "")
	auth.Cookie.SameSite = p.sameSite("COOKIE_SAMESITE", auth.Cookie.SameSite)
	auth.Frontend.Origin = p.str("FRONTEND_ORIGIN", cfg.AllowedOrigins[0])
	auth.Audit.Enabled = p.bool("AUDIT_ENABLED", false)
	auth.Metrics.Enabled = cfg.MetricsEnabled
	auth.Metrics.EnableLatencyHistograms = p.bool("METRICS_LATENCY", false)
	cfg.Auth = auth

	if host := p.str("SMTP_HOST", ""); host != "" {
		user := p.str("EMAIL_USER", "")
		cfg.SMTP = &mailer.SMTPConfig{
			Host:     host,
			Port:     p.str("SMTP_PORT", "587"),
			Username: user,
			Password: p.str("EMAIL_PASS", ""),
			From:     p.str("MAIL_FROM", user),
			Timeout:  p.duration("SMTP_TIMEOUT", 15*time.Second),
		}
	}

	if err := p.err(); err != nil {
		return nil, err
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}
	return cfg, nil
}

// parser collects every bad variable so one run reports them all.
type parser struct {
	errs []error
}

func (p *parser) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}

func (p *parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) list(key string, def []string) []string {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (p *parser) bool(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail("%s: %q is not a boolean", key, v)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail("%s: %q is not a positive duration", key, v)
		return def
	}
	return d
}

func (p *parser) sameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(p.str(key, "")) {
	case "":
		return def
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		p.fail("%s: want strict, lax or none", key)
		return def
	}
}
