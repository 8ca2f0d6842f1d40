package router

import (
	"net"
	"net/http"
	"strings"

	"github.com/shandysiswandi/phoneverify/internal/pkg/config"
)

// middlewareClientIP rewrites RemoteAddr to the bare client IP so the rate
// limiter and logs key on a stable value. Forwarding headers are only honored
// when app.server.trust_proxy_headers is set; otherwise any caller could pick
// its own rate limit bucket.
func middlewareClientIP(cfg config.Config) Middleware {
	trust := cfg != nil && cfg.GetBool("app.server.trust_proxy_headers")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := clientIP(r, trust); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request, trustHeaders bool) string {
	if trustHeaders {
		for _, h := range []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"} {
			v, _, _ := strings.Cut(r.Header.Get(h), ",")
			if ip := net.ParseIP(strings.TrimSpace(v)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}

	return ""
}
