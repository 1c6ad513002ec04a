package cmis

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestRate is the proactive throttle rate in requests per second.
	DefaultRequestRate = 20.0

	// DefaultBurst is the token bucket burst size.
	DefaultBurst = 5

	// DefaultRetryAfter is the pause after a 429 without Retry-After.
	DefaultRetryAfter = time.Second

	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter throttles requests to a repository.
// It combines a token bucket with back-off honouring Retry-After.
type RateLimiter struct {
	mu      sync.Mutex
	retryAt time.Time
	bucket  *rate.Limiter
}

// NewRateLimiter creates a limiter allowing perSecond requests per second.
func NewRateLimiter(perSecond float64) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRequestRate
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(perSecond), DefaultBurst),
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	// 1. Honour a server-requested pause
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	// 2. Token bucket
	return r.bucket.Wait(ctx)
}

// CheckResponse records any pause the response asks for and returns a
// RateLimitError when the request was throttled.
func (r *RateLimiter) CheckResponse(resp *http.Response) error {
	if resp == nil {
		return nil
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return nil
	}

	value := resp.Header.Get(HeaderRetryAfter)
	if value == "" && resp.StatusCode == http.StatusServiceUnavailable {
		// An unavailable server that names no retry time is not throttling.
		return nil
	}

	retryAt := time.Now().Add(DefaultRetryAfter)
	if seconds, err := strconv.Atoi(value); err == nil {
		retryAt = time.Now().Add(time.Duration(seconds) * time.Second)
	} else if at, err := http.ParseTime(value); err == nil {
		retryAt = at
	}

	r.mu.Lock()
	if retryAt.After(r.retryAt) {
		r.retryAt = retryAt
	}
	r.mu.Unlock()

	return &RateLimitError{RetryAt: retryAt}
}

// RetryAt returns the time before which no request is sent.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}
