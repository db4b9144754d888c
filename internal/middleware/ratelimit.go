package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"quizhub/pkg/errors"
	"quizhub/pkg/logger"
)

// Admitter decides whether a request from address may proceed
type Admitter interface {
	Admit(address string, now time.Time) bool
}

// RateLimit rejects over-limit addresses with 429 before any other work
func RateLimit(limiter Admitter, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			address := ClientAddress(r)
			if !limiter.Admit(address, time.Now()) {
				log.WithField("address", address).Debug("Rate limited")
				errors.WriteJSON(w, errors.NewRateLimitError("Too many requests"), "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddress returns the first X-Forwarded-For entry when present,
// otherwise the connection peer host.
func ClientAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
