package clients

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig defines retry behavior for marketplace requests
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         float64
	RetryableCodes []int
}

// DefaultRetryConfig returns the retry policy used against the Reverb API.
// Reverb throttles hard at roughly 50 requests per two minutes, so 429s are
// expected during large runs and honor the Retry-After header when present.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     60 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryableCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Retrier retries HTTP operations with exponential backoff
type Retrier struct {
	config *RetryConfig
}

// NewRetrier creates a retrier with the given config, falling back to the
// default policy when nil
func NewRetrier(config *RetryConfig) *Retrier {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retrier{config: config}
}

// shouldRetry reports whether a response warrants another attempt.
// Network-level errors (statusCode 0) always retry.
func (r *Retrier) shouldRetry(statusCode int, err error) bool {
	if err != nil && statusCode == 0 {
		return true
	}
	for _, code := range r.config.RetryableCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// backoff calculates the wait before the given attempt, preferring a
// server-provided Retry-After duration
func (r *Retrier) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}

	wait := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffFactor, float64(attempt))
	if r.config.Jitter > 0 {
		wait += wait * r.config.Jitter * (rand.Float64()*2 - 1)
	}
	if wait > float64(r.config.MaxBackoff) {
		wait = float64(r.config.MaxBackoff)
	}
	return time.Duration(wait)
}

// ParseRetryAfter extracts the Retry-After duration from an HTTP response
func ParseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}
	return 0
}

// RequestFunc issues one HTTP request attempt
type RequestFunc func(ctx context.Context) (*http.Response, error)

// DoHTTP executes an HTTP operation, retrying retryable failures until the
// budget is exhausted or the context is cancelled. The caller owns the
// returned response body.
func (r *Retrier) DoHTTP(ctx context.Context, operation string, fn RequestFunc) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		resp, err := fn(ctx)
		lastResp, lastErr = resp, err

		var statusCode int
		var retryAfter time.Duration
		if err == nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			statusCode = resp.StatusCode
			retryAfter = ParseRetryAfter(resp)
		}

		if !r.shouldRetry(statusCode, err) || attempt >= r.config.MaxRetries {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return lastResp, ctx.Err()
		case <-time.After(r.backoff(attempt, retryAfter)):
		}
	}

	if lastErr != nil {
		return lastResp, fmt.Errorf("%s: %w", operation, lastErr)
	}
	return lastResp, nil
}
