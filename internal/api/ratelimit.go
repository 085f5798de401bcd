package api

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles the public signup endpoint per client IP using a
// fixed one-minute window in Redis. The landing form is anonymous, so the
// IP is the only identity we have.
type RateLimiter struct {
	client        *redis.Client
	ratePerMinute int
}

// NewRateLimiter creates a Redis-backed rate limiter.
func NewRateLimiter(client *redis.Client, ratePerMinute int) *RateLimiter {
	return &RateLimiter{client: client, ratePerMinute: ratePerMinute}
}

// Middleware enforces the per-IP limit. Redis being unreachable fails
// open: losing rate limiting is better than losing signups.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		key := fmt.Sprintf("waitlist:ratelimit:%s:%s", ip, time.Now().UTC().Format("200601021504"))

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			log.Printf("[ratelimit] redis unavailable, failing open: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, 2*time.Minute)
		}

		if count > int64(rl.ratePerMinute) {
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, SignupResponse{
				OK:        false,
				ErrorKind: "transient",
				Message:   "Too many attempts, please wait a minute",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the remote IP. middleware.RealIP has already rewritten
// RemoteAddr from X-Forwarded-For when the request came through the ALB.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
