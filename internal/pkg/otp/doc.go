// Package otp produces short numeric one-time codes for out-of-band delivery
// (SMS). Each code is an HOTP value (RFC 4226 dynamic truncation) computed
// over a fresh random secret and counter, so codes are uniformly distributed
// and never derivable from earlier ones.
package otp
