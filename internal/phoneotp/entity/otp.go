package entity

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrPending is returned by Issue while an unexpired code exists for the phone.
	ErrPending = errors.New("phoneotp: code already pending")
	// ErrConfig marks a delivery configuration that cannot work.
	ErrConfig = errors.New("phoneotp: invalid configuration")
)

// Record is a code issued to a phone and waiting for verification. The code
// itself is never held, only its keyed digest.
type Record struct {
	ID        int64
	Phone     string
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time
	Attempts  int
}

// Expired reports whether the record is past its deadline at now. A record is
// still live at exactly ExpiresAt.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Remaining returns the time left before expiry, never negative.
func (r Record) Remaining(now time.Time) time.Duration {
	return max(r.ExpiresAt.Sub(now), 0)
}

// CeilSeconds rounds d up to whole seconds, with a floor of one second.
func CeilSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

type ConsumeResult struct {
	Outcome Outcome
	Record  Record
}
