package api

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// rateLimiter guards the store against UI loops that write on every frame.
type rateLimiter interface {
	Allow() bool
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (b *tokenBucket) Allow() bool {
	if b == nil || b.limiter == nil {
		return true
	}
	return b.limiter.Allow()
}

// retryAfter is the whole number of seconds until the next token, at least 1.
func (b *tokenBucket) retryAfter() int {
	if b == nil || b.limiter == nil || b.limiter.Limit() <= 0 {
		return 1
	}
	secs := int(1/float64(b.limiter.Limit()) + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// rateLimitMiddleware rejects requests once the limiter runs dry. Health
// checks bypass it.
func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == healthPath || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		retry := 1
		if b, ok := limiter.(*tokenBucket); ok {
			retry = b.retryAfter()
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "Too many requests", "settings API rate limit exceeded", "retry after "+strconv.Itoa(retry)+"s")
	})
}
