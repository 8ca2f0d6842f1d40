package phone

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultCountryCode is used when NewNormalizer gets an invalid code.
	DefaultCountryCode = "98"
	// DefaultNationalLength is the subscriber number length without trunk prefix.
	DefaultNationalLength = 10
)

// Normalizer maps raw phone input to its canonical key.
type Normalizer struct {
	countryCode    string
	nationalLength int
}

// NewNormalizer returns a Normalizer that prefixes national numbers with
// countryCode. A national number is one written with a trunk "0" or one that
// is exactly nationalLength digits long.
func NewNormalizer(countryCode string, nationalLength int) *Normalizer {
	cc := Digits(countryCode)
	if cc == "" || cc[0] == '0' {
		cc = DefaultCountryCode
	}
	if nationalLength <= 0 {
		nationalLength = DefaultNationalLength
	}

	return &Normalizer{countryCode: cc, nationalLength: nationalLength}
}

// CountryCode returns the configured default country code.
func (n *Normalizer) CountryCode() string {
	return n.countryCode
}

// Normalize returns the canonical key for raw. It returns "" when raw holds
// no usable digits.
func (n *Normalizer) Normalize(raw string) string {
	d := Digits(raw)

	switch {
	case strings.HasPrefix(d, "00"):
		d = strings.TrimLeft(d, "0")
	case strings.HasPrefix(d, "0"):
		if d = strings.TrimLeft(d, "0"); d != "" {
			d = n.countryCode + d
		}
	}

	if len(d) == n.nationalLength && !strings.HasPrefix(d, n.countryCode) {
		d = n.countryCode + d
	}

	// "+98 0912..." keeps the trunk zero after the country code.
	if rest, ok := strings.CutPrefix(d, n.countryCode); ok && strings.HasPrefix(rest, "0") {
		d = n.countryCode + strings.TrimLeft(rest, "0")
	}

	return d
}

// Digits folds every Unicode decimal digit in raw to ASCII and drops
// everything else.
func Digits(raw string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKC, runes.Map(foldDigit)), raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// foldDigit maps a decimal digit from any script to its ASCII form. Every
// range in unicode.Nd is a run of whole 0..9 blocks, so the value is the
// offset from the range start modulo ten.
func foldDigit(r rune) rune {
	if r < 0x80 || !unicode.Is(unicode.Nd, r) {
		return r
	}

	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return '0' + (r-lo)%10
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return '0' + (r-lo)%10
		}
	}

	return r
}
