package router

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/pkg/config"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*ipClient
	lastGC  time.Time
}

type ipClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *ipLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.idle {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idle {
				delete(l.clients, key)
			}
		}
		l.lastGC = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &ipClient{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now

	return c.limiter
}

// middlewareRateLimit caps requests per client IP with a token bucket.
// It is disabled when app.server.rate_limit.rps is not positive.
func middlewareRateLimit(cfg config.Config) Middleware {
	if cfg == nil || cfg.GetFloat64("app.server.rate_limit.rps") <= 0 {
		return nil
	}

	burst := max(cfg.GetInt("app.server.rate_limit.burst"), 1)
	idle := cfg.GetSecond("app.server.rate_limit.idle_seconds")
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	l := &ipLimiter{
		rps:     rate.Limit(cfg.GetFloat64("app.server.rate_limit.rps")),
		burst:   burst,
		idle:    idle,
		clients: make(map[string]*ipClient),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			res := l.get(r.RemoteAddr, now).ReserveN(now, 1)
			if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
				res.CancelAt(now)
				secs := int(math.Ceil(delay.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeJSON(w, errorResponse{Message: "too many requests"}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
