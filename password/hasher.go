package password

import "errors"

var (
	// ErrPasswordLength is returned by Hash for passwords outside the configured range.
	ErrPasswordLength = errors.New("password length out of range")
	// ErrUnsupportedHash is returned when a stored hash matches no known scheme.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

// Hasher hashes with argon2id and verifies both argon2id and legacy bcrypt
// hashes. Bcrypt hashes always report NeedsUpgrade so they are replaced on
// the next successful login.
type Hasher struct {
	primary *Argon2
	legacy  *Bcrypt
}

// NewHasher builds a Hasher around argon2id costs from cfg.
func NewHasher(cfg Config) (*Hasher, error) {
	primary, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{
		primary: primary,
		legacy:  NewBcrypt(0),
	}, nil
}

// Hash returns an argon2id PHC string.
func (h *Hasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Verify dispatches on the hash prefix. An empty stored hash never matches,
// which keeps password login closed for accounts provisioned through Google.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if encodedHash == "" || password == "" {
		return false, nil
	}
	switch {
	case h.primary.Claims(encodedHash):
		return h.primary.Verify(password, encodedHash)
	case h.legacy.Claims(encodedHash):
		return h.legacy.Verify(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
// argon2id hash.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	switch {
	case h.legacy.Claims(encodedHash):
		return true, nil
	case h.primary.Claims(encodedHash):
		return h.primary.NeedsUpgrade(encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}
