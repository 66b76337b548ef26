package craveAuth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway within range",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway too large",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "refresh ttl not above access ttl",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = c.JWT.AccessTTL
			},
			wantValid: false,
		},
		{
			name: "short access secret",
			mutate: func(c *Config) {
				c.JWT.AccessSecret = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "shared secrets",
			mutate: func(c *Config) {
				c.JWT.ResetSecret = append([]byte(nil), c.JWT.AccessSecret...)
			},
			wantValid: false,
		},
		{
			name: "otp digits below six",
			mutate: func(c *Config) {
				c.OTP.Digits = 4
			},
			wantValid: false,
		},
		{
			name: "otp ttl above fifteen minutes",
			mutate: func(c *Config) {
				c.OTP.TTL = 20 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "argon2 memory too small",
			mutate: func(c *Config) {
				c.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "password min length below eight",
			mutate: func(c *Config) {
				c.Password.MinLength = 6
			},
			wantValid: false,
		},
		{
			name: "reset enabled without origin",
			mutate: func(c *Config) {
				c.Frontend.Origin = " "
			},
			wantValid: false,
		},
		{
			name: "reset disabled without origin",
			mutate: func(c *Config) {
				c.PasswordReset.Enabled = false
				c.Frontend.Origin = ""
			},
			wantValid: true,
		},
		{
			name: "refresh throttle without limits",
			mutate: func(c *Config) {
				c.Security.MaxRefreshAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "refresh throttle disabled ignores limits",
			mutate: func(c *Config) {
				c.Security.EnableRefreshThrottle = false
				c.Security.MaxRefreshAttempts = 0
			},
			wantValid: true,
		},
		{
			name: "blank google client id",
			mutate: func(c *Config) {
				c.Google.ClientIDs = []string{"web-client-id", ""}
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "secrets") {
		t.Fatalf("expected secret validation error, got %v", err)
	}
}

func TestBuildCopiesConfig(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)

	cfg.JWT.AccessSecret[0] = 'X'
	cfg.Google.ClientIDs[0] = "changed"

	if engine.config.JWT.AccessSecret[0] == 'X' {
		t.Fatal("engine must not share secret bytes with caller")
	}
	if engine.config.Google.ClientIDs[0] != "web-client-id" {
		t.Fatal("engine must not share client ids with caller")
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	_, rdb := newTestRedis(t)
	repos := UserRepositories{Client: newMemUserRepo(), Vendor: newMemUserRepo(), Admin: newMemUserRepo()}

	tests := []struct {
		name  string
		build func() (*Engine, error)
	}{
		{
			name: "missing redis",
			build: func() (*Engine, error) {
				return New().WithConfig(testConfig()).WithUserRepositories(repos).
					WithRefreshTokenRepository(newMemRefreshRepo()).WithMailer(newFakeMailer()).Build()
			},
		},
		{
			name: "missing admin repository",
			build: func() (*Engine, error) {
				return New().WithConfig(testConfig()).WithRedis(rdb).
					WithUserRepositories(UserRepositories{Client: repos.Client, Vendor: repos.Vendor}).
					WithRefreshTokenRepository(newMemRefreshRepo()).WithMailer(newFakeMailer()).Build()
			},
		},
		{
			name: "missing refresh repository",
			build: func() (*Engine, error) {
				return New().WithConfig(testConfig()).WithRedis(rdb).WithUserRepositories(repos).
					WithMailer(newFakeMailer()).Build()
			},
		},
		{
			name: "missing mailer",
			build: func() (*Engine, error) {
				return New().WithConfig(testConfig()).WithRedis(rdb).WithUserRepositories(repos).
					WithRefreshTokenRepository(newMemRefreshRepo()).Build()
			},
		},
		{
			name: "google verifier without client ids",
			build: func() (*Engine, error) {
				cfg := testConfig()
				cfg.Google.ClientIDs = nil
				return New().WithConfig(cfg).WithRedis(rdb).WithUserRepositories(repos).
					WithRefreshTokenRepository(newMemRefreshRepo()).WithMailer(newFakeMailer()).
					WithGoogleVerifier(&fakeVerifier{}).Build()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := tt.build()
			if err == nil {
				engine.Close()
				t.Fatal("expected Build to fail")
			}
		})
	}
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserRepositories(UserRepositories{Client: newMemUserRepo(), Vendor: newMemUserRepo(), Admin: newMemUserRepo()}).
		WithRefreshTokenRepository(newMemRefreshRepo()).
		WithMailer(newFakeMailer())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.OTP.Digits = 3

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepositories(UserRepositories{Client: newMemUserRepo(), Vendor: newMemUserRepo(), Admin: newMemUserRepo()}).
		WithRefreshTokenRepository(newMemRefreshRepo()).
		WithMailer(newFakeMailer()).
		Build()
	if err == nil || errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected config error, got %v", err)
	}
}
