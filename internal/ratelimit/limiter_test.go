// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitSpacesRequestsToSameHost(t *testing.T) {
	l := New(Config{HostDelay: 60 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "example.org"))
	require.NoError(t, l.Wait(ctx, "example.org"))
	require.NoError(t, l.Wait(ctx, "example.org"))

	assert.GreaterOrEqual(t, time.Since(start), 110*time.Millisecond)
}

func TestWaitDoesNotDelayOtherHosts(t *testing.T) {
	l := New(Config{HostDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "a.example.org"))
	require.NoError(t, l.Wait(ctx, "b.example.org"))
	require.NoError(t, l.Wait(ctx, "c.example.org"))
}

func TestWaitHostIsCaseInsensitive(t *testing.T) {
	l := New(Config{HostDelay: time.Hour})
	require.NoError(t, l.Wait(context.Background(), "Example.org"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "example.ORG"))
}

func TestWaitHonoursCancellation(t *testing.T) {
	l := New(Config{HostDelay: time.Hour})
	require.NoError(t, l.Wait(context.Background(), "example.org"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx, "example.org"))
}

func TestHostDelayOverride(t *testing.T) {
	l := New(Config{
		HostDelay:  time.Second,
		HostDelays: map[string]time.Duration{"eutils.ncbi.nlm.nih.gov": 350 * time.Millisecond},
	})
	assert.Equal(t, 350*time.Millisecond, l.DelayFor("EUTILS.ncbi.nlm.nih.gov"))
	assert.Equal(t, time.Second, l.DelayFor("arxiv.org"))
}

func TestNilLimiterNeverWaits(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background(), "example.org"))
	assert.Zero(t, l.DelayFor("example.org"))
}

func TestConcurrentWaitersShareHostBudget(t *testing.T) {
	l := New(Config{HostDelay: 30 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.WaitURL(ctx, "https://example.org/paper.pdf"))
		}()
	}
	wg.Wait()

	// Four requests need three gaps.
	assert.GreaterOrEqual(t, time.Since(start), 85*time.Millisecond)
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC1/pdf/", "www.ncbi.nlm.nih.gov"},
		{"http://127.0.0.1:8080/x", "127.0.0.1"},
		{"HTTPS://ArXiv.org/pdf/1", "arxiv.org"},
		{"::not a url", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HostOf(tt.in), tt.in)
	}
}
