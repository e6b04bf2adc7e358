package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token binding ref (a proposal or run id) to a storage key.
func (s *SignedURLSigner) Generate(ref, key string) (string, time.Time, error) {
	if ref == "" || key == "" {
		return "", time.Time{}, errors.New("ref and key required")
	}
	if strings.Contains(ref, ".") {
		return "", time.Time{}, fmt.Errorf("ref %q must not contain '.'", ref)
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	token := strings.Join([]string{ref, ts, encodedKey, s.sign(ref, ts, encodedKey)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded metadata. Expiry is not
// enforced when allowExpired is set.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (ref, key string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	ref, ts, encodedKey, signature := parts[0], parts[1], parts[2], parts[3]

	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: decode key: %v", ErrTokenMalformed, err)
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: invalid timestamp", ErrTokenMalformed)
	}
	if !hmac.Equal([]byte(s.sign(ref, ts, encodedKey)), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenSignature
	}
	expiresAt = time.Unix(unix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return ref, string(rawKey), expiresAt, nil
}

func (s *SignedURLSigner) sign(ref, ts, encodedKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(ref + "|" + ts + "|" + encodedKey))
	return hex.EncodeToString(mac.Sum(nil))
}
