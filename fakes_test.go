package craveAuth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*User{}}
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, userID string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrEmailExists
		}
	}
	cp := *user
	r.users[user.UserID] = &cp
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memUserRepo) UpdateStatus(_ context.Context, userID string, status AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Status = status
	return nil
}

func (r *memUserRepo) put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = &u
}

func (r *memUserRepo) get(userID string) User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[userID]
}

type memRefreshRepo struct {
	mu      sync.Mutex
	records map[string]RefreshTokenRecord
	failAll bool
}

func newMemRefreshRepo() *memRefreshRepo {
	return &memRefreshRepo{records: map[string]RefreshTokenRecord{}}
}

var errRefreshStoreDown = errors.New("refresh store down")

func (r *memRefreshRepo) Save(_ context.Context, rec RefreshTokenRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRefreshStoreDown
	}
	r.records[rec.Token] = rec
	return nil
}

func (r *memRefreshRepo) Consume(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return false, errRefreshStoreDown
	}
	_, ok := r.records[token]
	delete(r.records, token)
	return ok, nil
}

func (r *memRefreshRepo) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRefreshStoreDown
	}
	delete(r.records, token)
	return nil
}

func (r *memRefreshRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errRefreshStoreDown
	}
	for token, rec := range r.records {
		if rec.UserID == userID {
			delete(r.records, token)
		}
	}
	return nil
}

func (r *memRefreshRepo) countFor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

type fakeMailer struct {
	mu       sync.Mutex
	otps     map[string]string
	links    map[string]string
	welcomed []string
	err      error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{otps: map[string]string{}, links: map[string]string{}}
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.otps[to] = code
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.links[to] = link
	return nil
}

func (m *fakeMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomed = append(m.welcomed, to)
	return m.err
}

func (m *fakeMailer) otp(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otps[to]
}

func (m *fakeMailer) link(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[to]
}

type fakeVerifier struct {
	identity *GoogleIdentity
	err      error
	audience string
}

func (v *fakeVerifier) Verify(_ context.Context, _ string, audience string) (*GoogleIdentity, error) {
	v.audience = audience
	if v.err != nil {
		return nil, v.err
	}
	id := *v.identity
	return &id, nil
}

type testDeps struct {
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	clients *memUserRepo
	vendors *memUserRepo
	admins  *memUserRepo
	refresh *memRefreshRepo
	mailer  *fakeMailer
	google  *fakeVerifier
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-access-secret-0123")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-refresh-secret-01")
	cfg.JWT.ResetSecret = []byte("reset-secret-reset-secret-reset0")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Google.ClientIDs = []string{"web-client-id"}
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.LoginCooldownDuration = time.Minute
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testDeps) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	deps := &testDeps{
		mr:      mr,
		rdb:     rdb,
		clients: newMemUserRepo(),
		vendors: newMemUserRepo(),
		admins:  newMemUserRepo(),
		refresh: newMemRefreshRepo(),
		mailer:  newFakeMailer(),
		google: &fakeVerifier{identity: &GoogleIdentity{
			Subject:       "google-sub-1",
			Email:         "guest@example.com",
			EmailVerified: true,
			Name:          "Guest",
			Picture:       "https://example.com/p.png",
		}},
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepositories(UserRepositories{
			Client: deps.clients,
			Vendor: deps.vendors,
			Admin:  deps.admins,
		}).
		WithRefreshTokenRepository(deps.refresh).
		WithMailer(deps.mailer).
		WithGoogleVerifier(deps.google).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, deps
}

// seedUser stores a user with a real argon2 hash of plain.
func seedUser(t *testing.T, e *Engine, repo *memUserRepo, role Role, email, plain string, status AccountStatus) User {
	t.Helper()

	var hash string
	if plain != "" {
		var err error
		hash, err = e.passwords.Hash(plain)
		if err != nil {
			t.Fatalf("Hash failed: %v", err)
		}
	}
	u := User{
		UserID:       "CRAVE-EVENTS-" + string(role) + "-" + email,
		Name:         "Test " + string(role),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	repo.put(u)
	return u
}
