// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch drives resolution and retrieval across a set of records.
// The Coordinator runs records through a bounded worker pool, turns every
// per-record failure into an outcome, and returns a frozen provenance
// ledger in input order. Only configuration errors, detected before any
// network activity, abort a run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/internal/metrics"
	"github.com/pdiddy/paperfetch/internal/retrieve"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// Defaults applied to a zero BatchConfig.
const (
	DefaultWorkers       = 1
	DefaultRecordTimeout = 3 * time.Minute
	DefaultOutputDir     = "papers"
)

// Resolver locates a record's full text. *resolve.Chain implements it.
type Resolver interface {
	Resolve(ctx context.Context, rec types.Record) types.ResolutionResult
}

// Fetcher downloads a resolved URL. *retrieve.Executor implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) types.RetrievalOutcome
}

// Recorder persists a frozen ledger. *ledger.Store implements it.
type Recorder interface {
	Save(ctx context.Context, l *ledger.Ledger) error
}

// Coordinator runs batches. A Coordinator may run several batches, but
// not concurrently.
type Coordinator struct {
	cfg      types.BatchConfig
	resolver Resolver
	fetcher  Fetcher
	recorder Recorder
	metrics  *metrics.Collector
	logger   *zap.Logger
	progress io.Writer
	runID    string
	now      func() time.Time

	mu sync.Mutex // guards progress
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithRecorder persists each finished ledger.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithProgress prints one human-readable line per record to w.
func WithProgress(w io.Writer) Option {
	return func(c *Coordinator) { c.progress = w }
}

// WithRunID fixes the run ID instead of generating one. The logger given
// to WithLogger is expected to carry the same ID.
func WithRunID(id string) Option {
	return func(c *Coordinator) { c.runID = id }
}

// New returns a Coordinator. Zero fields in cfg take their defaults.
func New(cfg types.BatchConfig, resolver Resolver, fetcher Fetcher, opts ...Option) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = DefaultRecordTimeout
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	c := &Coordinator{
		cfg:      cfg,
		resolver: resolver,
		fetcher:  fetcher,
		logger:   zap.NewNop(),
		progress: io.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Coordinator) Config() types.BatchConfig { return c.cfg }

// Prepare checks that the run can write its output: the output directory
// is created if needed and a probe file is written and removed. It makes
// no network calls.
func (c *Coordinator) Prepare() error {
	if c.resolver == nil || c.fetcher == nil {
		return errors.New("coordinator needs a resolver and a fetcher")
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	probe, err := os.CreateTemp(c.cfg.OutputDir, ".paperfetch-probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", c.cfg.OutputDir, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("removing probe file: %w", err)
	}
	return nil
}

// RunBatch processes records and returns their frozen ledger. The only
// error it returns comes from Prepare; per-record failures are recorded
// in the ledger. If ctx is cancelled, records that have not started are
// marked Cancelled and records in flight unwind without leaving partial
// files.
func (c *Coordinator) RunBatch(ctx context.Context, records []types.Record) (*ledger.Ledger, error) {
	if err := c.Prepare(); err != nil {
		return nil, err
	}

	// A caller that fixes the run ID has already tagged its logger with it.
	runID, logger := c.runID, c.logger
	if runID == "" {
		runID = uuid.NewString()
		logger = logger.With(zap.String("run_id", runID))
	}
	l := ledger.New(runID, c.now())

	logger.Info("batch started",
		zap.Int("records", len(records)),
		zap.Int("workers", c.cfg.Workers),
		zap.String("output_dir", c.cfg.OutputDir))

	outcomes := make([]types.RetrievalOutcome, len(records))
	var finished atomic.Int32

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	for i, rec := range records {
		if ctx.Err() != nil {
			break
		}
		i, rec := i, rec
		g.Go(func() error {
			outcomes[i] = c.process(ctx, logger, rec)
			c.report(int(finished.Add(1)), len(records), outcomes[i])
			return nil
		})
	}
	g.Wait()

	for i := range outcomes {
		if outcomes[i].Status == "" {
			outcomes[i] = cancelled(records[i])
			c.metrics.Outcome(outcomes[i])
		}
		l.Append(outcomes[i])
	}
	l.Freeze(c.now())

	s := l.Summary
	logger.Info("batch finished",
		zap.Int("total", s.Total),
		zap.Int("downloaded", s.ByStatus[types.StatusDownloaded]),
		zap.Int("skipped", s.ByStatus[types.StatusSkipped]),
		zap.Int("not_found", s.NotFound),
		zap.Int("undownloadable", s.Undownloadable),
		zap.Int("cancelled", s.ByStatus[types.StatusCancelled]),
		zap.Duration("elapsed", l.Duration()))

	if c.recorder != nil {
		if err := c.recorder.Save(context.WithoutCancel(ctx), l); err != nil {
			logger.Error("saving ledger to history", zap.Error(err))
		}
	}
	return l, nil
}

// process runs one record through resolution and retrieval.
func (c *Coordinator) process(ctx context.Context, logger *zap.Logger, rec types.Record) types.RetrievalOutcome {
	if ctx.Err() != nil {
		out := cancelled(rec)
		c.metrics.Outcome(out)
		return out
	}

	start := c.now()
	out := c.retrieve(ctx, rec)
	out.RecordID = rec.Identifier
	out.Title = rec.Title
	out.Duration = c.now().Sub(start)

	c.metrics.Outcome(out)
	logOutcome(logger, out)
	return out
}

func (c *Coordinator) retrieve(ctx context.Context, rec types.Record) types.RetrievalOutcome {
	rctx, cancel := context.WithTimeout(ctx, c.cfg.RecordTimeout)
	defer cancel()

	dest := retrieve.DestPath(c.cfg.OutputDir, rec)
	if !c.cfg.Force {
		if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return types.RetrievalOutcome{
				Status:       types.StatusSkipped,
				LocalPath:    dest,
				BytesWritten: info.Size(),
			}
		}
	}

	res := c.resolver.Resolve(rctx, rec)
	if !res.Found {
		// A miss caused by the batch being cancelled says nothing about
		// whether a copy exists.
		if ctx.Err() != nil {
			return interrupted(rec, "batch cancelled during resolution")
		}
		detail := "no source has an accessible copy"
		if err := rctx.Err(); err != nil {
			detail = fmt.Sprintf("resolution interrupted: %v", err)
		}
		return types.RetrievalOutcome{Status: types.StatusResolutionFailed, ErrorDetail: detail}
	}

	out := c.fetcher.Fetch(rctx, res.URL, dest)
	if out.Status != types.StatusDownloaded && ctx.Err() != nil {
		out = interrupted(rec, "batch cancelled during download")
	}
	out.URL = res.URL
	out.AccessType = res.AccessType
	if out.Status == types.StatusDownloaded {
		out.SourceUsed = res.Source
		out.LocalPath = dest
	} else {
		out.SourceUsed = ""
		out.LocalPath = ""
		out.BytesWritten = 0
	}
	return out
}

func cancelled(rec types.Record) types.RetrievalOutcome {
	return types.RetrievalOutcome{
		RecordID:    rec.Identifier,
		Title:       rec.Title,
		Status:      types.StatusCancelled,
		ErrorDetail: "batch cancelled before the record started",
	}
}

// interrupted marks a record the batch abandoned while it was in flight.
func interrupted(rec types.Record, detail string) types.RetrievalOutcome {
	out := cancelled(rec)
	out.ErrorDetail = detail
	return out
}

func logOutcome(logger *zap.Logger, o types.RetrievalOutcome) {
	fields := []zap.Field{
		zap.String("record_id", o.RecordID),
		zap.String("status", string(o.Status)),
		zap.Duration("duration", o.Duration),
	}
	if o.URL != "" {
		fields = append(fields, zap.String("url", o.URL))
	}
	if o.Attempts > 0 {
		fields = append(fields, zap.Int("attempts", o.Attempts))
	}
	if o.ErrorDetail != "" {
		fields = append(fields, zap.String("error", o.ErrorDetail))
	}

	switch o.Status {
	case types.StatusDownloaded:
		logger.Info("document downloaded", append(fields,
			zap.String("source", string(o.SourceUsed)),
			zap.String("access_type", string(o.AccessType)),
			zap.String("path", o.LocalPath),
			zap.Int64("bytes", o.BytesWritten))...)
	case types.StatusSkipped:
		logger.Info("document already present", append(fields, zap.String("path", o.LocalPath))...)
	case types.StatusResolutionFailed:
		logger.Info("no source located record", fields...)
	case types.StatusValidationFailed:
		logger.Warn("located content is not a document", append(fields,
			zap.String("access_type", string(o.AccessType)))...)
	case types.StatusFetchFailed:
		logger.Error("download failed", fields...)
	default:
		logger.Info("record finished", fields...)
	}
}

// report prints one progress line in the style of the acquire output.
func (c *Coordinator) report(n, total int, o types.RetrievalOutcome) {
	var line string
	switch o.Status {
	case types.StatusDownloaded:
		line = fmt.Sprintf("downloaded: %s from %s (%d bytes) -> %s", o.RecordID, o.SourceUsed.Label(), o.BytesWritten, filepath.Base(o.LocalPath))
	case types.StatusSkipped:
		line = fmt.Sprintf("skipped: %s (already exists)", o.RecordID)
	case types.StatusResolutionFailed:
		line = fmt.Sprintf("not found: %s", o.RecordID)
	case types.StatusCancelled:
		line = fmt.Sprintf("cancelled: %s", o.RecordID)
	default:
		line = fmt.Sprintf("failed:  %s (%s: %s)", o.RecordID, o.Status, o.ErrorDetail)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.progress, "[%d/%d] %s\n", n, total, line)
}
