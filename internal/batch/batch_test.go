// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/internal/metrics"
	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/internal/resolve"
	"github.com/pdiddy/paperfetch/internal/retrieve"
	"github.com/pdiddy/paperfetch/pkg/types"
)

var pdfBody = []byte("%PDF-1.7\n%test document\n%%EOF\n")

// --- mocks ---

type mapResolver struct {
	results map[string]types.ResolutionResult
	jitter  time.Duration
	calls   atomic.Int32
}

func (m *mapResolver) Resolve(ctx context.Context, rec types.Record) types.ResolutionResult {
	m.calls.Add(1)
	if m.jitter > 0 {
		select {
		case <-time.After(time.Duration(rand.Int63n(int64(m.jitter)))):
		case <-ctx.Done():
			return types.NotFound()
		}
	}
	if r, ok := m.results[rec.Identifier]; ok {
		return r
	}
	return types.NotFound()
}

type fileFetcher struct {
	calls atomic.Int32
	fail  map[string]types.Status
}

func (f *fileFetcher) Fetch(_ context.Context, url, dest string) types.RetrievalOutcome {
	f.calls.Add(1)
	if st, ok := f.fail[url]; ok {
		return types.RetrievalOutcome{Status: st, Attempts: 1, ErrorDetail: "mock failure"}
	}
	if err := os.WriteFile(dest, pdfBody, 0o644); err != nil {
		return types.RetrievalOutcome{Status: types.StatusFetchFailed, ErrorDetail: err.Error()}
	}
	return types.RetrievalOutcome{Status: types.StatusDownloaded, LocalPath: dest, BytesWritten: int64(len(pdfBody)), Attempts: 1}
}

type memRecorder struct {
	mu    sync.Mutex
	saved []*ledger.Ledger
	err   error
}

func (r *memRecorder) Save(_ context.Context, l *ledger.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, l)
	return r.err
}

func records(n int) []types.Record {
	recs := make([]types.Record, n)
	for i := range recs {
		recs[i] = types.Record{Identifier: fmt.Sprintf("%d", 1000+i), Title: fmt.Sprintf("Paper %d", i)}
	}
	return recs
}

func foundAll(recs []types.Record) map[string]types.ResolutionResult {
	out := make(map[string]types.ResolutionResult)
	for _, r := range recs {
		out[r.Identifier] = types.FoundAt(types.SourceRepositoryA, "https://example.org/"+r.Identifier+".pdf", types.AccessOpenAccess)
	}
	return out
}

// --- Prepare ---

func TestPrepareCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "papers")
	c := New(types.BatchConfig{OutputDir: dir}, &mapResolver{}, &fileFetcher{})

	require.NoError(t, c.Prepare())
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")
}

func TestPrepareFailsBeforeAnyNetworkCall(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	resolver := &mapResolver{}
	fetcher := &fileFetcher{}
	c := New(types.BatchConfig{OutputDir: filepath.Join(blocker, "papers")}, resolver, fetcher)

	l, err := c.RunBatch(context.Background(), records(3))

	require.Error(t, err)
	assert.Nil(t, l)
	assert.Equal(t, int32(0), resolver.calls.Load())
	assert.Equal(t, int32(0), fetcher.calls.Load())
}

func TestPrepareRequiresComponents(t *testing.T) {
	c := New(types.BatchConfig{OutputDir: t.TempDir()}, nil, nil)
	assert.Error(t, c.Prepare())
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg := New(types.BatchConfig{}, nil, nil).Config()
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultRecordTimeout, cfg.RecordTimeout)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
}

// --- RunBatch ---

func TestRunBatchPreservesInputOrderUnderConcurrency(t *testing.T) {
	recs := records(24)
	resolver := &mapResolver{results: foundAll(recs), jitter: 15 * time.Millisecond}
	// Every fourth record misses so outcomes differ by index.
	for i := 0; i < len(recs); i += 4 {
		delete(resolver.results, recs[i].Identifier)
	}

	c := New(types.BatchConfig{OutputDir: t.TempDir(), Workers: 6}, resolver, &fileFetcher{})
	l, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)

	require.Len(t, l.Entries, len(recs))
	for i, e := range l.Entries {
		assert.Equal(t, recs[i].Identifier, e.RecordID, "entry %d out of order", i)
		if i%4 == 0 {
			assert.Equal(t, types.StatusResolutionFailed, e.Status)
		} else {
			assert.Equal(t, types.StatusDownloaded, e.Status)
		}
	}
	assert.NoError(t, l.Validate())
}

func TestRunBatchRespectsWorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	resolver := resolverFunc(func(ctx context.Context, rec types.Record) types.ResolutionResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return types.NotFound()
	})

	c := New(types.BatchConfig{OutputDir: t.TempDir(), Workers: 3}, resolver, &fileFetcher{})
	_, err := c.RunBatch(context.Background(), records(12))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1))
}

type resolverFunc func(context.Context, types.Record) types.ResolutionResult

type fetcherFunc func(ctx context.Context, url, dest string) types.RetrievalOutcome

func (f fetcherFunc) Fetch(ctx context.Context, url, dest string) types.RetrievalOutcome {
	return f(ctx, url, dest)
}

func (f resolverFunc) Resolve(ctx context.Context, rec types.Record) types.ResolutionResult {
	return f(ctx, rec)
}

func TestRunBatchSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	recs := records(2)
	existing := retrieve.DestPath(dir, recs[0])
	require.NoError(t, os.WriteFile(existing, pdfBody, 0o644))

	resolver := &mapResolver{results: foundAll(recs)}
	c := New(types.BatchConfig{OutputDir: dir}, resolver, &fileFetcher{})
	l, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)

	assert.Equal(t, types.StatusSkipped, l.Entries[0].Status)
	assert.Equal(t, existing, l.Entries[0].LocalPath)
	assert.Empty(t, l.Entries[0].SourceUsed)
	assert.Equal(t, types.StatusDownloaded, l.Entries[1].Status)
	assert.Equal(t, int32(1), resolver.calls.Load(), "skipped records are not resolved")
}

func TestRunBatchForceRedownloads(t *testing.T) {
	dir := t.TempDir()
	recs := records(1)
	require.NoError(t, os.WriteFile(retrieve.DestPath(dir, recs[0]), pdfBody, 0o644))

	c := New(types.BatchConfig{OutputDir: dir, Force: true}, &mapResolver{results: foundAll(recs)}, &fileFetcher{})
	l, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDownloaded, l.Entries[0].Status)
}

func TestRunBatchFailuresDoNotAbort(t *testing.T) {
	recs := records(4)
	results := foundAll(recs)
	fetcher := &fileFetcher{fail: map[string]types.Status{
		results["1001"].URL: types.StatusFetchFailed,
		results["1002"].URL: types.StatusValidationFailed,
	}}

	c := New(types.BatchConfig{OutputDir: t.TempDir()}, &mapResolver{results: results}, fetcher)
	l, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)

	got := []types.Status{}
	for _, e := range l.Entries {
		got = append(got, e.Status)
	}
	assert.Equal(t, []types.Status{
		types.StatusDownloaded,
		types.StatusFetchFailed,
		types.StatusValidationFailed,
		types.StatusDownloaded,
	}, got)
	assert.Empty(t, l.Entries[1].SourceUsed, "failed fetches carry no source")
	assert.Equal(t, results["1001"].URL, l.Entries[1].URL)
	assert.Equal(t, 2, l.Summary.Undownloadable)
	assert.True(t, l.HasFailures())
}

func TestRunBatchCancelledRecordsAreMarked(t *testing.T) {
	recs := records(5)
	ctx, cancel := context.WithCancel(context.Background())

	var seen atomic.Int32
	resolver := resolverFunc(func(_ context.Context, rec types.Record) types.ResolutionResult {
		if seen.Add(1) == 2 {
			cancel()
		}
		return types.NotFound()
	})

	c := New(types.BatchConfig{OutputDir: t.TempDir(), Workers: 1}, resolver, &fileFetcher{})
	l, err := c.RunBatch(ctx, recs)
	require.NoError(t, err)
	require.Len(t, l.Entries, 5)

	assert.Equal(t, types.StatusResolutionFailed, l.Entries[0].Status)
	assert.Equal(t, "batch cancelled during resolution", l.Entries[1].ErrorDetail)
	for _, e := range l.Entries[1:] {
		assert.Equal(t, types.StatusCancelled, e.Status, e.RecordID)
	}
	assert.Equal(t, 4, l.Summary.ByStatus[types.StatusCancelled])
	assert.Equal(t, 1, l.Summary.NotFound)
}

func TestRunBatchCancelDuringResolutionIsNotNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	resolving := make(chan struct{})
	resolver := resolverFunc(func(rctx context.Context, _ types.Record) types.ResolutionResult {
		close(resolving)
		<-rctx.Done()
		return types.NotFound()
	})
	go func() {
		<-resolving
		cancel()
	}()

	c := New(types.BatchConfig{OutputDir: t.TempDir()}, resolver, &fileFetcher{})
	l, err := c.RunBatch(ctx, records(1))
	require.NoError(t, err)

	e := l.Entries[0]
	assert.Equal(t, types.StatusCancelled, e.Status)
	assert.Equal(t, "1000", e.RecordID)
	assert.Equal(t, "batch cancelled during resolution", e.ErrorDetail)
	assert.Zero(t, l.Summary.NotFound)
	assert.Zero(t, l.Summary.Undownloadable)
	assert.False(t, l.HasFailures())

	var report bytes.Buffer
	require.NoError(t, ledger.WriteText(&report, l))
	assert.NotContains(t, report.String(), "Not found in any source")
	assert.Contains(t, report.String(), "Cancelled (1):")
}

func TestRunBatchCancelDuringDownloadIsNotUndownloadable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	recs := records(1)
	fetcher := fetcherFunc(func(_ context.Context, _, _ string) types.RetrievalOutcome {
		cancel()
		return types.RetrievalOutcome{Status: types.StatusFetchFailed, Attempts: 1, ErrorDetail: "context canceled"}
	})

	c := New(types.BatchConfig{OutputDir: t.TempDir()}, &mapResolver{results: foundAll(recs)}, fetcher)
	l, err := c.RunBatch(ctx, recs)
	require.NoError(t, err)

	e := l.Entries[0]
	assert.Equal(t, types.StatusCancelled, e.Status)
	assert.Equal(t, "batch cancelled during download", e.ErrorDetail)
	assert.Empty(t, e.SourceUsed)
	assert.Zero(t, l.Summary.Undownloadable)
}

func TestRunBatchAppliesRecordTimeout(t *testing.T) {
	resolver := resolverFunc(func(ctx context.Context, _ types.Record) types.ResolutionResult {
		<-ctx.Done()
		return types.NotFound()
	})

	c := New(types.BatchConfig{OutputDir: t.TempDir(), RecordTimeout: 20 * time.Millisecond}, resolver, &fileFetcher{})
	l, err := c.RunBatch(context.Background(), records(1))
	require.NoError(t, err)
	assert.Equal(t, types.StatusResolutionFailed, l.Entries[0].Status)
	assert.Contains(t, l.Entries[0].ErrorDetail, "deadline exceeded")
}

func TestRunBatchPersistsLedger(t *testing.T) {
	rec := &memRecorder{}
	c := New(types.BatchConfig{OutputDir: t.TempDir()}, &mapResolver{}, &fileFetcher{},
		WithRecorder(rec), WithRunID("fixed-run"))

	l, err := c.RunBatch(context.Background(), records(2))
	require.NoError(t, err)
	require.Len(t, rec.saved, 1)
	assert.Same(t, l, rec.saved[0])
	assert.Equal(t, "fixed-run", l.RunID)
	assert.True(t, l.Frozen())
}

func TestRunBatchRecorderErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rec := &memRecorder{err: fmt.Errorf("disk full")}
	c := New(types.BatchConfig{OutputDir: t.TempDir()}, &mapResolver{}, &fileFetcher{},
		WithRecorder(rec), WithLogger(zap.New(core)))

	_, err := c.RunBatch(context.Background(), records(1))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("saving ledger to history").Len())
}

func TestRunBatchLogsFailureLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	recs := records(2)
	results := foundAll(recs)
	fetcher := &fileFetcher{fail: map[string]types.Status{
		results["1000"].URL: types.StatusValidationFailed,
		results["1001"].URL: types.StatusFetchFailed,
	}}

	c := New(types.BatchConfig{OutputDir: t.TempDir()}, &mapResolver{results: results}, fetcher,
		WithLogger(zap.New(core)))
	_, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)

	invalid := logs.FilterMessage("located content is not a document").All()
	require.Len(t, invalid, 1)
	assert.Equal(t, zapcore.WarnLevel, invalid[0].Level)

	failed := logs.FilterMessage("download failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	assert.Equal(t, "1001", failed[0].ContextMap()["record_id"])
}

func TestRunBatchProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	recs := records(2)
	results := foundAll(recs)
	delete(results, "1001")

	c := New(types.BatchConfig{OutputDir: t.TempDir()}, &mapResolver{results: results}, &fileFetcher{},
		WithProgress(&buf))
	_, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[1/2] downloaded: 1000 from PubMed Central")
	assert.Contains(t, out, "[2/2] not found: 1001")
}

func TestRunBatchRecordsMetrics(t *testing.T) {
	m := metrics.New()
	recs := records(3)
	c := New(types.BatchConfig{OutputDir: t.TempDir()}, &mapResolver{results: foundAll(recs[:2])}, &fileFetcher{},
		WithMetrics(m))
	_, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != "paperfetch_records_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 3.0, total)
}

func TestNewLimiterNCBIDelays(t *testing.T) {
	lim := NewLimiter(types.BatchConfig{}, "")
	assert.Equal(t, DefaultHostDelay, lim.DelayFor("arxiv.org"))
	assert.Equal(t, 350*time.Millisecond, lim.DelayFor("eutils.ncbi.nlm.nih.gov"))

	keyed := NewLimiter(types.BatchConfig{HostDelay: 2 * time.Second}, "secret")
	assert.Equal(t, 2*time.Second, keyed.DelayFor("arxiv.org"))
	assert.Equal(t, 100*time.Millisecond, keyed.DelayFor("eutils.ncbi.nlm.nih.gov"))
}

// --- end to end ---

// stubAdapter answers from a fixed table, standing in for one external
// source, and records whether it was consulted.
type stubAdapter struct {
	source types.Source
	access types.AccessType
	urls   map[string]string
	calls  atomic.Int32
}

func (a *stubAdapter) Source() types.Source        { return a.source }
func (a *stubAdapter) Host() string                { return "stub.test" }
func (a *stubAdapter) Timeout() time.Duration      { return time.Second }
func (a *stubAdapter) Accepts(_ types.Record) bool { return true }
func (a *stubAdapter) Resolve(_ context.Context, rec types.Record) types.ResolutionResult {
	a.calls.Add(1)
	if u, ok := a.urls[rec.Identifier]; ok {
		access := a.access
		if access == "" {
			access = types.AccessOpenAccess
		}
		return types.FoundAt(a.source, u, access)
	}
	return types.NotFound()
}

func TestEndToEndThreeRecords(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".pdf") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdfBody)
	}))
	defer ts.Close()

	repoA := &stubAdapter{source: types.SourceRepositoryA, urls: map[string]string{"1": ts.URL + "/pmc/1.pdf"}}
	preprint := &stubAdapter{source: types.SourcePreprintServer, urls: map[string]string{"2": ts.URL + "/biorxiv/2.pdf"}}
	arxiv := &stubAdapter{source: types.SourceSecondaryPreprintServer}
	authorCopy := &stubAdapter{source: types.SourceAuthorCopyIndex}

	limiter := ratelimit.New(ratelimit.Config{})
	chain := resolve.NewChain([]resolve.Adapter{repoA, preprint, arxiv, authorCopy}, limiter, nil, nil)
	executor := retrieve.New(ts.Client(), types.FetchConfig{}, retrieve.WithLimiter(limiter))

	dir := t.TempDir()
	store, err := ledger.OpenStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	recs := []types.Record{
		{Identifier: "1", Title: "First paper"},
		{Identifier: "2", Title: "Second paper"},
		{Identifier: "3", Title: "Third paper"},
	}
	c := New(types.BatchConfig{OutputDir: dir, Workers: 2}, chain, executor, WithRecorder(store))

	l, err := c.RunBatch(context.Background(), recs)
	require.NoError(t, err)

	want := []types.RetrievalOutcome{
		{RecordID: "1", Title: "First paper", Status: types.StatusDownloaded, SourceUsed: types.SourceRepositoryA,
			AccessType: types.AccessOpenAccess, URL: ts.URL + "/pmc/1.pdf",
			LocalPath: filepath.Join(dir, "1_First_paper.pdf"), BytesWritten: int64(len(pdfBody)), Attempts: 1},
		{RecordID: "2", Title: "Second paper", Status: types.StatusDownloaded, SourceUsed: types.SourcePreprintServer,
			AccessType: types.AccessOpenAccess, URL: ts.URL + "/biorxiv/2.pdf",
			LocalPath: filepath.Join(dir, "2_Second_paper.pdf"), BytesWritten: int64(len(pdfBody)), Attempts: 1},
		{RecordID: "3", Title: "Third paper", Status: types.StatusResolutionFailed,
			ErrorDetail: "no source has an accessible copy"},
	}
	if diff := cmp.Diff(want, l.Entries, cmpopts.IgnoreFields(types.RetrievalOutcome{}, "Duration")); diff != "" {
		t.Errorf("ledger entries mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, map[types.Source]int{
		types.SourceRepositoryA:    1,
		types.SourcePreprintServer: 1,
	}, l.Summary.BySource)
	assert.Equal(t, map[types.Status]int{
		types.StatusDownloaded:       2,
		types.StatusResolutionFailed: 1,
	}, l.Summary.ByStatus)

	assert.Equal(t, int32(3), repoA.calls.Load())
	assert.Equal(t, int32(2), preprint.calls.Load(), "record 1 never reaches the preprint server")
	assert.Equal(t, int32(1), arxiv.calls.Load())
	assert.Equal(t, int32(1), authorCopy.calls.Load())

	for _, e := range l.Entries[:2] {
		got, err := os.ReadFile(e.LocalPath)
		require.NoError(t, err)
		assert.Equal(t, pdfBody, got)
	}

	saved, err := store.Load(context.Background(), l.RunID)
	require.NoError(t, err)
	assert.Equal(t, l.Summary, saved.Summary)
}

func TestEndToEndAuthorCopySearchPageIsUndownloadable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<!DOCTYPE html><html><body>Search results</body></html>")
	}))
	defer ts.Close()

	searchURL := ts.URL + "/search?q=Gut+microbiome"
	authorCopy := &stubAdapter{
		source: types.SourceAuthorCopyIndex,
		access: types.AccessAuthorCopy,
		urls:   map[string]string{"1": searchURL},
	}
	chain := resolve.NewChain([]resolve.Adapter{
		&stubAdapter{source: types.SourceRepositoryA},
		&stubAdapter{source: types.SourcePreprintServer},
		&stubAdapter{source: types.SourceSecondaryPreprintServer},
		authorCopy,
	}, nil, nil, nil)
	executor := retrieve.New(ts.Client(), types.FetchConfig{})

	dir := t.TempDir()
	c := New(types.BatchConfig{OutputDir: dir}, chain, executor)
	l, err := c.RunBatch(context.Background(), []types.Record{{Identifier: "1", Title: "Gut microbiome"}})
	require.NoError(t, err)

	want := []types.RetrievalOutcome{{
		RecordID:   "1",
		Title:      "Gut microbiome",
		Status:     types.StatusValidationFailed,
		AccessType: types.AccessAuthorCopy,
		URL:        searchURL,
		Attempts:   1,
	}}
	opts := cmpopts.IgnoreFields(types.RetrievalOutcome{}, "Duration", "ErrorDetail")
	if diff := cmp.Diff(want, l.Entries, opts); diff != "" {
		t.Errorf("ledger entries mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, l.Entries[0].ErrorDetail, "not a document")
	assert.Equal(t, 1, l.Summary.Undownloadable)
	assert.Zero(t, l.Summary.NotFound)
	assert.True(t, l.HasFailures())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is saved for a search page")

	var report bytes.Buffer
	require.NoError(t, ledger.WriteText(&report, l))
	out := report.String()
	require.Contains(t, out, "Found but could not be downloaded (1):")
	section := out[strings.Index(out, "Found but could not be downloaded (1):"):]
	assert.Contains(t, section, "1 ")
	assert.Contains(t, section, string(types.StatusValidationFailed))
	assert.NotContains(t, out, "Not found in any source")
}
