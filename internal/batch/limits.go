// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"time"

	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// Politeness defaults.
const (
	DefaultHostDelay         = 1 * time.Second
	DefaultRequestsPerSecond = 5.0

	// NCBI allows 3 requests per second without an API key and 10 with one.
	ncbiHost       = "eutils.ncbi.nlm.nih.gov"
	ncbiDelay      = 350 * time.Millisecond
	ncbiKeyedDelay = 100 * time.Millisecond
)

// NewLimiter builds the limiter shared by every component of one batch
// run. Construct it per run; it must not outlive the batch.
func NewLimiter(cfg types.BatchConfig, ncbiAPIKey string) *ratelimit.Limiter {
	hostDelay := cfg.HostDelay
	if hostDelay <= 0 {
		hostDelay = DefaultHostDelay
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	ncbi := ncbiDelay
	if ncbiAPIKey != "" {
		ncbi = ncbiKeyedDelay
	}

	return ratelimit.New(ratelimit.Config{
		HostDelay:         hostDelay,
		HostDelays:        map[string]time.Duration{ncbiHost: ncbi},
		RequestsPerSecond: rps,
	})
}
