package server

import (
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"vodforge/internal/database"
)

// RateLimiter is a fixed-window per-IP limiter backed by the shared redis
// handle: first hit in a window sets the expiry, counting past Max rejects.
type RateLimiter struct {
	DB     database.Database
	Window time.Duration
	Max    int64
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.DB == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "rate:" + clientIP(r)

		requests, err := rl.DB.Incr(key)

		if err != nil {
			// Losing the limiter should not take the API down.
			log.WithError(err).Error("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		if requests == 1 {
			if err = rl.DB.Expire(key, rl.Window); err != nil {
				log.WithError(err).Error("unable to expire rate key")
			}
		}

		if requests > rl.Max {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)

	if err != nil {
		return r.RemoteAddr
	}

	return host
}
