// Package testkit wires an Engine against miniredis and in-memory
// repositories for the HTTP-facing tests.
package testkit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type UserRepo struct {
	mu    sync.Mutex
	users map[string]craveAuth.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: map[string]craveAuth.User{}}
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*craveAuth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, craveAuth.ErrUserNotFound
}

func (r *UserRepo) FindByID(_ context.Context, userID string) (*craveAuth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, craveAuth.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepo) Create(_ context.Context, user *craveAuth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return craveAuth.ErrEmailExists
		}
	}
	r.users[user.UserID] = *user
	return nil
}

func (r *UserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return r.mutate(userID, func(u *craveAuth.User) { u.PasswordHash = passwordHash })
}

func (r *UserRepo) UpdateStatus(_ context.Context, userID string, status craveAuth.AccountStatus) error {
	return r.mutate(userID, func(u *craveAuth.User) { u.Status = status })
}

func (r *UserRepo) mutate(userID string, fn func(*craveAuth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return craveAuth.ErrUserNotFound
	}
	fn(&u)
	r.users[userID] = u
	return nil
}

// Get returns the stored copy of userID, or the zero User.
func (r *UserRepo) Get(userID string) craveAuth.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID]
}

type RefreshRepo struct {
	mu      sync.Mutex
	records map[string]craveAuth.RefreshTokenRecord
}

func NewRefreshRepo() *RefreshRepo {
	return &RefreshRepo{records: map[string]craveAuth.RefreshTokenRecord{}}
}

func (r *RefreshRepo) Save(_ context.Context, rec craveAuth.RefreshTokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Token] = rec
	return nil
}

func (r *RefreshRepo) Consume(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[token]
	delete(r.records, token)
	return ok, nil
}

func (r *RefreshRepo) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, token)
	return nil
}

func (r *RefreshRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, rec := range r.records {
		if rec.UserID == userID {
			delete(r.records, token)
		}
	}
	return nil
}

func (r *RefreshRepo) Has(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[token]
	return ok
}

// Mailer records the last code and link mailed to each address.
type Mailer struct {
	mu    sync.Mutex
	codes map[string]string
	links map[string]string
}

func NewMailer() *Mailer {
	return &Mailer{codes: map[string]string{}, links: map[string]string{}}
}

func (m *Mailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *Mailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[to] = link
	return nil
}

func (m *Mailer) SendWelcome(context.Context, string, string) error { return nil }

func (m *Mailer) Code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

// ResetToken returns the token part of the last reset link sent to to.
func (m *Mailer) ResetToken(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	link := m.links[to]
	return link[strings.LastIndex(link, "/")+1:]
}

// Verifier accepts the credential "valid-google-token" only.
type Verifier struct {
	Identity craveAuth.GoogleIdentity
}

func (v *Verifier) Verify(_ context.Context, credential, _ string) (*craveAuth.GoogleIdentity, error) {
	if credential != "valid-google-token" {
		return nil, errors.New("token rejected")
	}
	id := v.Identity
	return &id, nil
}

const GoogleClientID = "web-client-id"

// Kit is an Engine plus handles on everything behind it.
type Kit struct {
	Engine  *craveAuth.Engine
	Redis   *miniredis.Miniredis
	RDB     redis.UniversalClient
	Clients *UserRepo
	Vendors *UserRepo
	Admins  *UserRepo
	Refresh *RefreshRepo
	Mailer  *Mailer
	Config  craveAuth.Config

	hasher *password.Hasher
}

// Config returns a valid engine configuration with cheap argon2 settings.
func Config() craveAuth.Config {
	cfg := craveAuth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-01")
	cfg.JWT.ResetSecret = []byte("reset-secret-reset-secret-reset0")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Google.ClientIDs = []string{GoogleClientID}
	cfg.Cookie.Secure = false
	cfg.Metrics.Enabled = true
	return cfg
}

// New builds a Kit on a fresh miniredis.
func New(t testing.TB, cfg craveAuth.Config) *Kit {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	k := NewWithRedis(t, cfg, rdb)
	k.Redis = mr
	return k
}

// NewWithRedis builds a Kit on an existing client. Redis is left nil.
func NewWithRedis(t testing.TB, cfg craveAuth.Config, rdb redis.UniversalClient) *Kit {
	t.Helper()

	k := &Kit{
		RDB:     rdb,
		Clients: NewUserRepo(),
		Vendors: NewUserRepo(),
		Admins:  NewUserRepo(),
		Refresh: NewRefreshRepo(),
		Mailer:  NewMailer(),
		Config:  cfg,
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	k.hasher = hasher

	engine, err := craveAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepositories(craveAuth.UserRepositories{Client: k.Clients, Vendor: k.Vendors, Admin: k.Admins}).
		WithRefreshTokenRepository(k.Refresh).
		WithMailer(k.Mailer).
		WithGoogleVerifier(&Verifier{Identity: craveAuth.GoogleIdentity{
			Subject:       "google-sub-1",
			Email:         "guest@example.com",
			EmailVerified: true,
			Name:          "Guest",
		}}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	k.Engine = engine
	return k
}

func (k *Kit) repo(role craveAuth.Role) *UserRepo {
	switch role {
	case craveAuth.RoleVendor:
		return k.Vendors
	case craveAuth.RoleAdmin:
		return k.Admins
	default:
		return k.Clients
	}
}

// Seed stores an account of role with a real hash of plain.
func (k *Kit) Seed(t testing.TB, role craveAuth.Role, email, plain string, status craveAuth.AccountStatus) craveAuth.User {
	t.Helper()

	hash, err := k.hasher.Hash(plain)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	u := craveAuth.User{
		UserID:       "CRAVE-EVENTS-" + string(role) + "-" + email,
		Name:         "Test " + string(role),
		Email:        email,
		Phone:        "9876543210",
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	if err := k.repo(role).Create(context.Background(), &u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return u
}

// Login seeds an active account and logs it in.
func (k *Kit) Login(t testing.TB, role craveAuth.Role, email string) (*craveAuth.LoginResult, craveAuth.User) {
	t.Helper()

	u := k.Seed(t, role, email, "correct-horse-1", craveAuth.StatusActive)
	res, err := k.Engine.Login(context.Background(), role, email, "correct-horse-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res, u
}

// Delete removes userID, simulating an account deleted mid-session.
func (r *UserRepo) Delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}
