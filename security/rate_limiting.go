package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts attempts in fixed Redis windows.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Counts one hit and (re)arms the window whenever the key has no expiry, so a
// counter can never outlive its window. ARGV: window in milliseconds.
const hitScript = `
local count = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`

// hit increments key and reports whether the count is still within limit.
// The window starts at the first hit.
func (r *RateLimiter) hit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.redis.Eval(ctx, hitScript, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("counting hit on %s: %w", key, err)
	}
	return count <= int64(limit), nil
}

// ScanAttemptLimiter bounds how many times one ticket can be presented per
// window, which caps guessing of its code.
type ScanAttemptLimiter struct {
	limiter *RateLimiter
	limit   int
	window  time.Duration
}

func NewScanAttemptLimiter(redisClient *redis.Client, limit int, window time.Duration) *ScanAttemptLimiter {
	return &ScanAttemptLimiter{
		limiter: NewRateLimiter(redisClient),
		limit:   limit,
		window:  window,
	}
}

func (s *ScanAttemptLimiter) Allow(ctx context.Context, ticketID string) (bool, error) {
	return s.limiter.hit(ctx, fmt.Sprintf("scan:attempts:%s", ticketID), s.limit, s.window)
}

// ScanRequestLimit throttles scan requests per client address. Redis faults
// let the request through; the per-ticket limit still applies downstream.
func (r *RateLimiter) ScanRequestLimit(limit int, window time.Duration) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		key := fmt.Sprintf("scan:requests:%s", e.RemoteIP())

		allowed, err := r.hit(e.Request.Context(), key, limit, window)
		if err != nil {
			slog.Warn("Scan request limit check failed", "error", err)
			return e.Next()
		}
		if !allowed {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests",
			})
		}

		return e.Next()
	}
}
