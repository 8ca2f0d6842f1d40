package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes and checks keyed digests.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}

// HMACSHA256 implements Hash using HMAC with SHA-256.
type HMACSHA256 struct {
	secret []byte
}

// NewHMACSHA256 creates a new hasher with a secret.
func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Hash returns the hex-encoded HMAC-SHA256 of str.
func (s *HMACSHA256) Hash(str string) ([]byte, error) {
	return s.sum(str), nil
}

// Verify reports whether hashed is the digest of str, in constant time.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	return hmac.Equal([]byte(hashed), s.sum(str))
}

func (s *HMACSHA256) sum(str string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(str))

	return []byte(hex.EncodeToString(mac.Sum(nil)))
}
