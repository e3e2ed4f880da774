// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages: the retry
// policy value object and a 429-aware request helper for metadata calls.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// Policy describes bounded retry with exponential backoff. The zero value
// is usable: missing fields fall back to DefaultPolicy.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// Multiplier scales the wait between successive attempts. Values
	// below 1 are treated as 1 so the delay never shrinks.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// DefaultPolicy is three attempts with waits of 1s and 2s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

// Normalize fills unset fields from DefaultPolicy.
func (p Policy) Normalize() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.Multiplier == 0 {
		p.Multiplier = d.Multiplier
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	return p
}

// Delay returns the wait before attempt n (1-based). Attempt 1 has no
// wait; attempt n waits BaseDelay * Multiplier^(n-2).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	p = p.Normalize()
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-2)))
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryBaseDelay controls the base duration for backoff on HTTP 429
// responses in DoWithRetry. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

const defaultMaxRetries = 5

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) with exponential backoff starting at RetryBaseDelay.
//
// When maxRetries is 0 the default (5) is used. On each 429 the response
// body is drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last 429 response is returned so the caller can inspect it.
//
// Source adapters must not use this: resolution never retries.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	policy := Policy{MaxAttempts: maxRetries + 1, BaseDelay: RetryBaseDelay, Multiplier: 2}

	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= policy.MaxAttempts {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := Sleep(ctx, policy.Delay(attempt+1)); err != nil {
			return nil, err
		}
	}
}
