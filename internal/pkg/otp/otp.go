package otp

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	// MinDigits and MaxDigits bound the code length accepted by NewNumeric.
	MinDigits = 4
	MaxDigits = 8

	secretSize = 20 // RFC 4226 recommendation
)

// Generator creates one-time codes.
type Generator interface {
	Generate() (string, error)
}

// Numeric generates fixed-width decimal codes.
type Numeric struct {
	digits otp.Digits
	rand   io.Reader
}

// NewNumeric returns a generator of codes with the given number of digits,
// clamped to [MinDigits, MaxDigits].
func NewNumeric(digits int) *Numeric {
	return NewNumericWithRand(digits, rand.Reader)
}

// NewNumericWithRand is NewNumeric with an explicit entropy source.
func NewNumericWithRand(digits int, r io.Reader) *Numeric {
	return &Numeric{digits: otp.Digits(min(max(digits, MinDigits), MaxDigits)), rand: r}
}

// Digits returns the code width.
func (n *Numeric) Digits() int {
	return n.digits.Length()
}

// Generate returns a new code, zero-padded to the configured width.
func (n *Numeric) Generate() (string, error) {
	buf := make([]byte, secretSize+8)
	if _, err := io.ReadFull(n.rand, buf); err != nil {
		return "", fmt.Errorf("otp: read entropy: %w", err)
	}

	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf[:secretSize])
	counter := binary.BigEndian.Uint64(buf[secretSize:])

	return hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    n.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
}
