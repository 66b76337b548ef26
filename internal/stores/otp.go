package stores

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpRecordVersionV1 = 1

// otpRecordSize is version(1) + attempts(2) + hash(32).
const otpRecordSize = 35

var (
	ErrOTPNotFound         = errors.New("otp record not found")
	ErrOTPMismatch         = errors.New("otp mismatch")
	ErrOTPAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrOTPRedisUnavailable = errors.New("otp redis unavailable")
)

// consumeOTPLua atomically performs GET→compare→DEL/SET on an OTP record.
// KEYS[1] = record key
// ARGV[1] = provided hash (32 bytes)
// ARGV[2] = max attempts (int string)
//
// Returns:
//
//	"ok" on match (record deleted)
//	error string: "not_found", "attempts_exceeded", "mismatch"
var consumeOTPLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
if string.len(data) ~= 35 or string.byte(data, 1) ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local maxAttempts = tonumber(ARGV[2])
local attempts = string.byte(data, 2) * 256 + string.byte(data, 3)
local storedHash = string.sub(data, 4, 35)

if storedHash == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 'ok'
end

attempts = attempts + 1
if attempts >= maxAttempts then
  redis.call('DEL', KEYS[1])
  return {err='attempts_exceeded'}
end

local ttlMs = redis.call('PTTL', KEYS[1])
if ttlMs <= 0 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end
local newData = string.sub(data, 1, 1) .. string.char(math.floor(attempts / 256), attempts % 256) .. storedHash
redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
return {err='mismatch'}
`)

// OTPStore keeps one hashed signup code per email. Saving replaces any
// previous code and resets its attempt counter.
type OTPStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewOTPStore(redisClient redis.UniversalClient, prefix string) *OTPStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &OTPStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *OTPStore) key(email string) string {
	return s.prefix + ":" + email
}

func (s *OTPStore) Save(ctx context.Context, email string, hash [32]byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(email), encodeOTPRecord(hash, 0), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return nil
}

// Consume deletes the record when providedHash matches. A mismatch burns one
// attempt; the record is dropped once maxAttempts wrong guesses were made.
func (s *OTPStore) Consume(ctx context.Context, email string, providedHash [32]byte, maxAttempts int) error {
	result, err := consumeOTPLua.Run(ctx, s.redis,
		[]string{s.key(email)},
		string(providedHash[:]),
		maxAttempts,
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return ErrOTPNotFound
		case "attempts_exceeded":
			return ErrOTPAttemptsExceeded
		case "mismatch":
			return ErrOTPMismatch
		default:
			return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
		}
	}

	if ok, _ := result.(string); subtle.ConstantTimeCompare([]byte(ok), []byte("ok")) != 1 {
		return fmt.Errorf("%w: unexpected lua result", ErrOTPRedisUnavailable)
	}
	return nil
}

// Delete removes the record. Missing records are not an error.
func (s *OTPStore) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return nil
}

func encodeOTPRecord(hash [32]byte, attempts uint16) []byte {
	buf := make([]byte, otpRecordSize)
	buf[0] = otpRecordVersionV1
	binary.BigEndian.PutUint16(buf[1:3], attempts)
	copy(buf[3:], hash[:])
	return buf
}
