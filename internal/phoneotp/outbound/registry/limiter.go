package registry

import (
	"sync"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/pkg/clock"
)

// SendLimiter caps how many codes are dispatched to one phone within a
// sliding window. Each dispatch costs an SMS, so failed sends count too.
type SendLimiter struct {
	mu     sync.Mutex
	sends  map[string][]time.Time
	clock  clock.Clocker
	window time.Duration
	limit  int
}

// NewSendLimiter allows limit sends per window. A non-positive limit or window
// disables the limit.
func NewSendLimiter(clk clock.Clocker, window time.Duration, limit int) *SendLimiter {
	return &SendLimiter{
		sends:  make(map[string][]time.Time),
		clock:  clk,
		window: window,
		limit:  limit,
	}
}

func (l *SendLimiter) disabled() bool {
	return l.limit <= 0 || l.window <= 0
}

// Allow records a send for phone and returns true, or returns false with the
// wait until the oldest send in the window ages out.
func (l *SendLimiter) Allow(phone string) (time.Duration, bool) {
	if l.disabled() {
		return 0, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	recent := l.prune(l.sends[phone], now)
	if len(recent) >= l.limit {
		l.sends[phone] = recent
		return recent[0].Add(l.window).Sub(now), false
	}

	l.sends[phone] = append(recent, now)

	return 0, true
}

// Sweep forgets phones with no sends inside the window and returns how many
// were dropped.
func (l *SendLimiter) Sweep() int {
	if l.disabled() {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	removed := 0
	for phone, ts := range l.sends {
		if recent := l.prune(ts, now); len(recent) == 0 {
			delete(l.sends, phone)
			removed++
		} else {
			l.sends[phone] = recent
		}
	}

	return removed
}

// prune drops timestamps at or before now-window. ts is in ascending order.
func (l *SendLimiter) prune(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}

	return ts[i:]
}
