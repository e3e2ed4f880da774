// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve downloads a resolved document to disk. The Executor
// retries transient transport failures with backoff, validates that what
// arrived is a document rather than an error page, and writes through a
// temporary file so the destination path holds either a complete valid
// document or nothing.
package retrieve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/metrics"
	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// DefaultMaxBytes caps a single document at 100 MiB.
const DefaultMaxBytes int64 = 100 << 20

// Attempt failure classes. Every attempt error wraps exactly one.
var (
	errTransient = errors.New("transient failure")
	errInvalid   = errors.New("invalid content")
	errLocal     = errors.New("local filesystem failure")
)

// sniffLen is the number of leading bytes inspected for validation.
const sniffLen = 512

var pdfMagic = []byte("%PDF-")

// Executor fetches URLs to local files. It is safe for concurrent use.
type Executor struct {
	client    *http.Client
	policy    httputil.Policy
	userAgent string
	maxBytes  int64
	limiter   *ratelimit.Limiter
	metrics   *metrics.Collector
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// Option customizes an Executor.
type Option func(*Executor)

// WithLimiter makes every attempt wait on l for the URL's host.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(e *Executor) { e.limiter = l }
}

// WithMetrics counts attempts in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithLogger sets the logger for per-attempt diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithSleep replaces the backoff wait. Tests use it to record delays
// without sleeping.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(e *Executor) { e.sleep = fn }
}

// New returns an Executor configured by cfg.
func New(client *http.Client, cfg types.FetchConfig, opts ...Option) *Executor {
	policy := httputil.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
	}.Normalize()

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	e := &Executor{
		client:    client,
		policy:    policy,
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		logger:    zap.NewNop(),
		sleep:     httputil.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewHTTPClient returns a client for document downloads. headerTimeout
// bounds connecting and waiting for response headers; reading the body is
// bounded only by the context passed to Fetch, so a large document on a
// slow link is limited by the per-record budget rather than a fixed
// client timeout.
func NewHTTPClient(headerTimeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: tr}
}

// Policy returns the effective retry policy.
func (e *Executor) Policy() httputil.Policy { return e.policy }

// Fetch downloads url to destPath. It never returns an error: every
// failure is reported through the outcome's Status and ErrorDetail.
// The returned outcome carries Status, LocalPath, BytesWritten, Attempts,
// URL and ErrorDetail; callers fill in record and provenance fields.
func (e *Executor) Fetch(ctx context.Context, url, destPath string) types.RetrievalOutcome {
	out := types.RetrievalOutcome{URL: url}
	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.policy.Delay(attempt)
			e.logger.Debug("retrying download",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := e.sleep(ctx, delay); err != nil {
				lastErr = fmt.Errorf("waiting to retry: %w", err)
				break
			}
		}
		if err := e.limiter.WaitURL(ctx, url); err != nil {
			lastErr = fmt.Errorf("waiting for rate limiter: %w", err)
			break
		}

		out.Attempts = attempt
		n, err := e.attempt(ctx, url, destPath)
		switch {
		case err == nil:
			e.metrics.FetchAttempt(metrics.AttemptOK)
			out.Status = types.StatusDownloaded
			out.LocalPath = destPath
			out.BytesWritten = n
			return out

		case errors.Is(err, errInvalid):
			e.metrics.FetchAttempt(metrics.AttemptInvalid)
			out.Status = types.StatusValidationFailed
			out.ErrorDetail = err.Error()
			return out

		case errors.Is(err, errLocal):
			out.Status = types.StatusFetchFailed
			out.ErrorDetail = err.Error()
			return out
		}

		e.metrics.FetchAttempt(metrics.AttemptTransient)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	out.Status = types.StatusFetchFailed
	if lastErr != nil {
		out.ErrorDetail = lastErr.Error()
	}
	if out.Attempts == e.policy.MaxAttempts {
		out.ErrorDetail = fmt.Sprintf("giving up after %d attempts: %s", out.Attempts, out.ErrorDetail)
	}
	return out
}

// attempt performs one GET and, on success, leaves a validated file at
// destPath. On failure no file is left behind.
func (e *Executor) attempt(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: creating request: %v", errInvalid, err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: HTTP request: %v", errTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, io.LimitReader(resp.Body, sniffLen))
		return 0, fmt.Errorf("%w: HTTP %d", errTransient, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, fmt.Errorf("%w: HTTP %d from %s", errInvalid, resp.StatusCode, url)
	}

	declared := resp.Header.Get("Content-Type")
	if !isDocumentType(declared) {
		return 0, fmt.Errorf("%w: content type %q is not a document", errInvalid, declared)
	}
	if resp.ContentLength > e.maxBytes {
		return 0, fmt.Errorf("%w: declared size %d exceeds limit %d", errInvalid, resp.ContentLength, e.maxBytes)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".paperfetch-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: creating temp file: %v", errLocal, err)
	}
	tmpPath := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	head := &headBuffer{limit: sniffLen}
	n, copyErr := io.Copy(io.MultiWriter(tmpFile, head), io.LimitReader(resp.Body, e.maxBytes+1))
	closeErr := tmpFile.Close()

	if copyErr != nil {
		return n, fmt.Errorf("%w: body cut short after %d bytes: %v", errTransient, n, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("%w: closing temp file: %v", errLocal, closeErr)
	}
	if resp.ContentLength > 0 && n < resp.ContentLength {
		return n, fmt.Errorf("%w: body cut short: got %d of %d bytes", errTransient, n, resp.ContentLength)
	}
	if n > e.maxBytes {
		return n, fmt.Errorf("%w: body exceeds limit of %d bytes", errInvalid, e.maxBytes)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: empty body", errInvalid)
	}
	if err := sniff(head.Bytes(), declared); err != nil {
		return n, err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return n, fmt.Errorf("%w: renaming temp file: %v", errLocal, err)
	}
	committed = true
	return n, nil
}

// documentTypes are the media types a document download may declare.
var documentTypes = map[string]bool{
	"application/pdf":          true,
	"application/x-pdf":        true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// mediaType returns the lowercased media type of a Content-Type header,
// without parameters.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}

// isDocumentType reports whether a Content-Type header is acceptable for a
// document. An absent header is accepted here and settled by sniff.
func isDocumentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	return documentTypes[mediaType(contentType)]
}

// sniff checks the first bytes of the body. Content starting with the PDF
// magic is always a document. Otherwise the server must have declared a
// document type and the bytes must not be recognizable as anything else
// (markup, text, images, audio, video, archives).
func sniff(head []byte, declared string) error {
	if bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n\ufeff"), pdfMagic) {
		return nil
	}
	if strings.TrimSpace(declared) == "" {
		return fmt.Errorf("%w: no content type and no PDF signature", errInvalid)
	}
	if ct := http.DetectContentType(head); ct != "application/octet-stream" {
		return fmt.Errorf("%w: content sniffed as %s", errInvalid, ct)
	}
	return nil
}

// headBuffer keeps the first limit bytes written to it and discards the rest.
type headBuffer struct {
	buf   []byte
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if room := h.limit - len(h.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		h.buf = append(h.buf, p[:room]...)
	}
	return len(p), nil
}

func (h *headBuffer) Bytes() []byte { return h.buf }
