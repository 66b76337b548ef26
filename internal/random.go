package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const userIDPrefix = "CRAVE-EVENTS-"

// uuidTrim drops the first time_low block and its dash from a v4 uuid.
const uuidTrim = 10

// NewOTP returns a numeric code of the given length drawn from crypto/rand.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// HashOTP binds a code to the address it was sent to, so a hash leaked from
// one key cannot be replayed against another.
func HashOTP(email, code string) [32]byte {
	return sha256.Sum256([]byte(email + "\x00" + code))
}

// HashToken is the storage form of bearer tokens (blacklist, reset).
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// NewUserID returns an id of the form CRAVE-EVENTS-<role>-<uuid tail>.
func NewUserID(role string) (string, error) {
	if role == "" {
		return "", errors.New("user id requires role")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return userIDPrefix + role + "-" + id.String()[uuidTrim:], nil
}

// NewTokenID returns a random jti.
func NewTokenID() string {
	return uuid.NewString()
}
