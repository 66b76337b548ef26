package craveAuth

import (
	"context"
	"strings"
	"time"
)

// Role identifies which user collection an account lives in. The three
// roles share one authentication surface but never share records.
type Role string

const (
	// RoleClient is an event attendee. Clients may self-register and use Google login.
	RoleClient Role = "client"
	// RoleVendor is an event organizer. Vendors self-register and wait for approval.
	RoleVendor Role = "vendor"
	// RoleAdmin moderates clients and vendors. Admins are seeded out of band.
	RoleAdmin Role = "admin"
)

// Roles lists every role in lookup order.
var Roles = []Role{RoleClient, RoleVendor, RoleAdmin}

// ParseRole normalizes s and returns the matching [Role], or
// [ErrInvalidRole] when s does not name one.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// CanSelfRegister reports whether accounts of role r may be created through
// the public signup path.
func (r Role) CanSelfRegister() bool {
	return r == RoleClient || r == RoleVendor
}

func (r Role) String() string { return string(r) }

// AccountStatus represents the lifecycle state of a user account. Values are
// persisted verbatim in the user collections.
type AccountStatus string

const (
	// StatusActive accounts may log in.
	StatusActive AccountStatus = "active"
	// StatusPending accounts are waiting for admin approval (vendors).
	StatusPending AccountStatus = "pending"
	// StatusRejected accounts were refused by an admin.
	StatusRejected AccountStatus = "rejected"
	// StatusBlocked accounts were suspended by an admin.
	StatusBlocked AccountStatus = "blocked"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusRejected, StatusBlocked:
		return true
	}
	return false
}

// DefaultStatus returns the status a freshly registered account of role r
// starts in.
func DefaultStatus(r Role) AccountStatus {
	if r == RoleVendor {
		return StatusPending
	}
	return StatusActive
}

// User is the persisted account record shared by the client, vendor and
// admin collections. Role-specific fields are left empty for other roles.
type User struct {
	UserID       string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	Status       AccountStatus

	GoogleID       string
	GoogleVerified bool
	ProfileImage   string

	// Vendor only.
	IDProof     string
	AboutVendor string

	// Admin only.
	IsSuperAdmin bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the sanitized view of a [User] returned to callers. It never
// carries credential material.
type Profile struct {
	UserID         string        `json:"userId"`
	Name           string        `json:"name"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone,omitempty"`
	Role           Role          `json:"role"`
	Status         AccountStatus `json:"status"`
	ProfileImage   string        `json:"profileImage,omitempty"`
	GoogleVerified bool          `json:"googleVerified,omitempty"`
	IDProof        string        `json:"idProof,omitempty"`
	AboutVendor    string        `json:"aboutVendor,omitempty"`
	IsSuperAdmin   bool          `json:"isSuperAdmin,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Sanitize drops the password hash and Google subject from u.
func (u User) Sanitize() Profile {
	return Profile{
		UserID:         u.UserID,
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		Role:           u.Role,
		Status:         u.Status,
		ProfileImage:   u.ProfileImage,
		GoogleVerified: u.GoogleVerified,
		IDProof:        u.IDProof,
		AboutVendor:    u.AboutVendor,
		IsSuperAdmin:   u.IsSuperAdmin,
		CreatedAt:      u.CreatedAt,
	}
}

// UserRepository is implemented once per role collection. Lookups that find
// nothing must return [ErrUserNotFound]; inserts that collide on email must
// return [ErrEmailExists].
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, userID string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateStatus(ctx context.Context, userID string, status AccountStatus) error
}

// UserRepositories groups the three role collections.
type UserRepositories struct {
	Client UserRepository
	Vendor UserRepository
	Admin  UserRepository
}

func (r UserRepositories) forRole(role Role) (UserRepository, bool) {
	var repo UserRepository
	switch role {
	case RoleClient:
		repo = r.Client
	case RoleVendor:
		repo = r.Vendor
	case RoleAdmin:
		repo = r.Admin
	}
	return repo, repo != nil
}

// RefreshTokenRecord is one persisted refresh token. Revocation deletes the
// record; a refresh token without a record is treated as revoked.
type RefreshTokenRecord struct {
	UserID    string
	Role      Role
	Token     string
	ExpiresAt time.Time
}

// RefreshTokenRepository persists issued refresh tokens.
//
// Consume deletes the record of token and reports whether it existed. Two
// concurrent Consume calls for one token must not both report true; refresh
// rotation relies on that. Revoke and RevokeAllForUser are idempotent.
type RefreshTokenRepository interface {
	Save(ctx context.Context, record RefreshTokenRecord) error
	Consume(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Mailer delivers the plain-text mails of the auth flows. Implementations
// must not retain the secrets they are handed.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, link string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// GoogleIdentity is the verified subset of a Google ID token payload.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IDTokenVerifier validates a Google ID token for the given audience.
type IDTokenVerifier interface {
	Verify(ctx context.Context, credential, audience string) (*GoogleIdentity, error)
}

// SessionTokens is the access/refresh pair issued on login.
type SessionTokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login] and [Engine.GoogleLogin].
type LoginResult struct {
	User   Profile
	Tokens SessionTokens
}

// AuthResult is the identity extracted from a validated access token.
type AuthResult struct {
	UserID    string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Role        Role
	Name        string
	Email       string
	Phone       string
	Password    string
	IDProof     string
	AboutVendor string
}

// NormalizeEmail lowercases and trims an email address. Every store keys
// on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
