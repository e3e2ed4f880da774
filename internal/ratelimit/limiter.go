// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit spaces outbound requests. A Limiter combines a global
// request rate with a minimum delay per host. It is the only state shared
// between concurrently processed records, so it is safe for concurrent use.
// Construct one per batch run and drop it when the batch ends.
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config configures a Limiter.
type Config struct {
	// HostDelay is the minimum spacing between two requests to one host.
	HostDelay time.Duration

	// HostDelays overrides HostDelay for specific hosts (lower-case).
	HostDelays map[string]time.Duration

	// RequestsPerSecond caps requests across all hosts. Zero disables the cap.
	RequestsPerSecond float64
}

// Limiter enforces Config. A nil *Limiter never waits.
type Limiter struct {
	cfg    Config
	global *rate.Limiter

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// New returns a Limiter for cfg.
func New(cfg Config) *Limiter {
	global := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		global = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Limiter{
		cfg:    cfg,
		global: global,
		hosts:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may be issued or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if l == nil {
		return ctx.Err()
	}
	if err := l.forHost(host).Wait(ctx); err != nil {
		return err
	}
	return l.global.Wait(ctx)
}

// WaitURL is Wait for the host of rawURL. Unparseable URLs share the
// empty-host bucket.
func (l *Limiter) WaitURL(ctx context.Context, rawURL string) error {
	return l.Wait(ctx, HostOf(rawURL))
}

// DelayFor returns the configured spacing for host.
func (l *Limiter) DelayFor(host string) time.Duration {
	if l == nil {
		return 0
	}
	if d, ok := l.cfg.HostDelays[strings.ToLower(host)]; ok {
		return d
	}
	return l.cfg.HostDelay
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	host = strings.ToLower(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.hosts[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if d := l.DelayFor(host); d > 0 {
		lim = rate.NewLimiter(rate.Every(d), 1)
	}
	l.hosts[host] = lim
	return lim
}

// HostOf returns the lower-case host (without port) of rawURL, or "".
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
