package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType is carried in the typ claim so a token of one kind is never
// accepted as another, even if secrets were misconfigured to collide.
type TokenType string

const (
	// TypeAccess marks short-lived tokens presented on every request.
	TypeAccess TokenType = "access"
	// TypeRefresh marks long-lived tokens exchanged for new access tokens.
	TypeRefresh TokenType = "refresh"
	// TypeReset marks single-use password reset tokens.
	TypeReset TokenType = "reset"
)

var (
	// ErrTokenExpired is returned when a token is past exp (plus leeway).
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for every other verification failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// Config holds one secret and TTL per token kind. All tokens are HS256.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

// Manager issues and verifies access, refresh and reset tokens.
//
// Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// Claims is the payload of every token kind.
type Claims struct {
	UID   string    `json:"uid"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 || len(cfg.ResetSecret) == 0 {
		return nil, errors.New("hs256 requires a secret per token type")
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// IssueAccess returns a signed access token and its expiry.
func (m *Manager) IssueAccess(uid, email, role string) (string, time.Time, error) {
	return m.issue(TypeAccess, uid, email, role)
}

// IssueRefresh returns a signed refresh token and its expiry.
func (m *Manager) IssueRefresh(uid, email, role string) (string, time.Time, error) {
	return m.issue(TypeRefresh, uid, email, role)
}

// IssueReset returns a signed password reset token and its expiry.
func (m *Manager) IssueReset(uid, email, role string) (string, time.Time, error) {
	return m.issue(TypeReset, uid, email, role)
}

// ParseAccess verifies an access token including expiry.
func (m *Manager) ParseAccess(token string) (*Claims, error) {
	return m.parse(TypeAccess, token, true)
}

// ParseRefresh verifies a refresh token including expiry.
func (m *Manager) ParseRefresh(token string) (*Claims, error) {
	return m.parse(TypeRefresh, token, true)
}

// ParseReset verifies a reset token including expiry.
func (m *Manager) ParseReset(token string) (*Claims, error) {
	return m.parse(TypeReset, token, true)
}

// DecodeAccess verifies signature, algorithm, issuer and typ of an access
// token but accepts it past its expiry. Logout uses it to identify the
// session of a token that has already lapsed.
func (m *Manager) DecodeAccess(token string) (*Claims, error) {
	return m.parse(TypeAccess, token, false)
}

// TTL returns the configured lifetime of typ.
func (m *Manager) TTL(typ TokenType) time.Duration {
	switch typ {
	case TypeAccess:
		return m.config.AccessTTL
	case TypeRefresh:
		return m.config.RefreshTTL
	case TypeReset:
		return m.config.ResetTTL
	}
	return 0
}

func (m *Manager) issue(typ TokenType, uid, email, role string) (string, time.Time, error) {
	if uid == "" || role == "" {
		return "", time.Time{}, errors.New("token requires uid and role")
	}
	secret, err := m.secret(typ)
	if err != nil {
		return "", time.Time{}, err
	}

	now := m.now()
	expiresAt := now.Add(m.TTL(typ))
	claims := Claims{
		UID:   uid,
		Email: email,
		Role:  role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *Manager) parse(typ TokenType, tokenStr string, validateTime bool) (*Claims, error) {
	secret, err := m.secret(typ)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if validateTime {
		options = append(options, jwt.WithExpirationRequired())
		if m.config.Leeway > 0 {
			options = append(options, jwt.WithLeeway(m.config.Leeway))
		}
		if m.config.Issuer != "" {
			options = append(options, jwt.WithIssuer(m.config.Issuer))
		}
		if m.config.Audience != "" {
			options = append(options, jwt.WithAudience(m.config.Audience))
		}
	} else {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: wrong token type %q", ErrTokenInvalid, claims.Type)
	}
	if claims.UID == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}
	if !validateTime && m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIAT > 0 {
		if claims.IssuedAt.Time.After(m.now().Add(m.config.MaxFutureIAT)) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrTokenInvalid)
		}
	}

	return claims, nil
}

func (m *Manager) secret(typ TokenType) ([]byte, error) {
	switch typ {
	case TypeAccess:
		return m.config.AccessSecret, nil
	case TypeRefresh:
		return m.config.RefreshSecret, nil
	case TypeReset:
		return m.config.ResetSecret, nil
	}
	return nil, fmt.Errorf("unknown token type %q", typ)
}
