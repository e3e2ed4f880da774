// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/pkg/types"
)

func TestAdapterCall(t *testing.T) {
	c := New()
	c.AdapterCall(types.SourceRepositoryA, true)
	c.AdapterCall(types.SourceRepositoryA, false)
	c.AdapterCall(types.SourceRepositoryA, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.adapterCalls.WithLabelValues("RepositoryA", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.adapterCalls.WithLabelValues("RepositoryA", "miss")))
}

func TestOutcomeCountsDownloadsBySource(t *testing.T) {
	c := New()
	c.Outcome(types.RetrievalOutcome{
		Status:       types.StatusDownloaded,
		SourceUsed:   types.SourcePreprintServer,
		BytesWritten: 2048,
		Duration:     time.Second,
	})
	c.Outcome(types.RetrievalOutcome{Status: types.StatusResolutionFailed})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.recordsTotal.WithLabelValues("Downloaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.recordsTotal.WithLabelValues("ResolutionFailed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.downloadsBy.WithLabelValues("PreprintServer")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(c.bytesTotal))
}

func TestFetchAttempt(t *testing.T) {
	c := New()
	c.FetchAttempt(AttemptTransient)
	c.FetchAttempt(AttemptTransient)
	c.FetchAttempt(AttemptOK)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetchAttempts.WithLabelValues(AttemptTransient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchAttempts.WithLabelValues(AttemptOK)))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.AdapterCall(types.SourceRepositoryA, true)
	c.FetchAttempt(AttemptOK)
	c.Outcome(types.RetrievalOutcome{Status: types.StatusDownloaded})
	assert.Nil(t, c.Registry())
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.AdapterCall(types.SourceSecondaryPreprintServer, true)

	path := filepath.Join(t.TempDir(), "paperfetch.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `paperfetch_adapter_calls_total{adapter="SecondaryPreprintServer",result="hit"} 1`)
}
