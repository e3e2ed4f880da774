// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve decides where a record's full text can be fetched. Each
// Adapter knows one external system; a Chain tries them in fixed priority
// order and stops at the first hit. Adapters never retry and never raise:
// any failure is an ordinary miss.
package resolve

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/metrics"
	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// Adapter looks a record up in exactly one external system.
type Adapter interface {
	// Source identifies the system for provenance.
	Source() types.Source

	// Host is the hostname the lookup contacts, used for rate limiting.
	Host() string

	// Timeout bounds a single Resolve call.
	Timeout() time.Duration

	// Accepts reports whether the record carries the key this adapter
	// queries by. The chain skips adapters that cannot key a record.
	Accepts(rec types.Record) bool

	// Resolve issues one lookup. It returns NotFound on any error.
	Resolve(ctx context.Context, rec types.Record) types.ResolutionResult
}

// Chain resolves records against adapters in priority order.
type Chain struct {
	adapters []Adapter
	limiter  *ratelimit.Limiter
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewChain returns a chain over adapters, which must already be in
// priority order. limiter, m and logger may be nil.
func NewChain(adapters []Adapter, limiter *ratelimit.Limiter, m *metrics.Collector, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		adapters: adapters,
		limiter:  limiter,
		metrics:  m,
		logger:   logger,
	}
}

// Adapters returns the adapters in the order they are tried.
func (c *Chain) Adapters() []Adapter {
	out := make([]Adapter, len(c.adapters))
	copy(out, c.adapters)
	return out
}

// Resolve tries each adapter in turn and returns the first hit, or
// NotFound when every adapter misses. Cancellation of ctx stops the chain
// before the next adapter is called.
func (c *Chain) Resolve(ctx context.Context, rec types.Record) types.ResolutionResult {
	for _, a := range c.adapters {
		if ctx.Err() != nil {
			break
		}
		if !a.Accepts(rec) {
			c.logger.Debug("adapter skipped",
				zap.String("record_id", rec.Identifier),
				zap.String("adapter", string(a.Source())))
			continue
		}
		if err := c.limiter.Wait(ctx, a.Host()); err != nil {
			break
		}

		res := c.call(ctx, a, rec)
		c.metrics.AdapterCall(a.Source(), res.Found)
		if res.Found {
			c.logger.Info("record resolved",
				zap.String("record_id", rec.Identifier),
				zap.String("source", string(res.Source)),
				zap.String("access_type", string(res.AccessType)),
				zap.String("url", res.URL))
			return res
		}
	}
	return types.NotFound()
}

// call runs one adapter under its own timeout and normalizes the answer.
func (c *Chain) call(ctx context.Context, a Adapter, rec types.Record) types.ResolutionResult {
	actx, cancel := context.WithTimeout(ctx, a.Timeout())
	defer cancel()

	res := a.Resolve(actx, rec)
	if !res.Found || res.URL == "" {
		return types.NotFound()
	}
	access := res.AccessType
	if access == "" || access == types.AccessUnavailable {
		access = types.AccessOpenAccess
	}
	return types.FoundAt(a.Source(), res.URL, access)
}

// DefaultAdapters builds the production adapters in priority order:
// PubMed Central, bioRxiv/medRxiv, arXiv, then (if enabled) ResearchGate.
func DefaultAdapters(client *http.Client, cfg types.ResolveConfig, userAgent string, logger *zap.Logger) []Adapter {
	adapters := []Adapter{
		&PMCAdapter{Client: client, Email: cfg.Email, APIKey: cfg.NCBIAPIKey, UserAgent: userAgent, Logger: logger},
		&PreprintAdapter{Client: client, Server: cfg.PreprintServer, UserAgent: userAgent, Logger: logger},
		&ArxivAdapter{Client: client, UserAgent: userAgent, Logger: logger},
	}
	if cfg.AuthorCopy {
		adapters = append(adapters, &AuthorCopyAdapter{Client: client, UserAgent: userAgent, Logger: logger})
	}
	return adapters
}

const maxQueryRunes = 100

// titleQuery turns a record title into a search key: the part before the
// first colon, whitespace-collapsed, at most 100 runes.
func titleQuery(title string) string {
	if i := strings.Index(title, ":"); i >= 0 {
		title = title[:i]
	}
	title = strings.Join(strings.Fields(title), " ")
	r := []rune(title)
	if len(r) > maxQueryRunes {
		r = r[:maxQueryRunes]
	}
	return strings.TrimSpace(string(r))
}

// normalizeTitle returns a lowercased, punctuation-stripped version of title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// A candidate title shorter than the query is accepted only when it is at
// least minTitleWords long and covers minTitleCoverage of the query's words.
const (
	minTitleWords    = 3
	minTitleCoverage = 0.8
)

// titlesMatch reports whether a candidate title returned by a text search
// plausibly names the same work as query. Matching is by whole words from
// the start of the title, except that a query titleQuery cut at its rune
// limit may end in a partial word.
func titlesMatch(query, candidate string) bool {
	q := strings.Fields(normalizeTitle(query))
	c := strings.Fields(normalizeTitle(candidate))
	if len(q) == 0 || len(c) == 0 {
		return false
	}
	if len(c) >= len(q) {
		truncated := utf8.RuneCountInString(strings.TrimSpace(query)) >= maxQueryRunes
		return wordsPrefix(q, c, truncated)
	}
	if len(c) < minTitleWords || float64(len(c)) < minTitleCoverage*float64(len(q)) {
		return false
	}
	return wordsPrefix(c, q, false)
}

// wordsPrefix reports whether prefix equals the leading words of words.
// With partialLast the final prefix word may be the start of its
// counterpart.
func wordsPrefix(prefix, words []string, partialLast bool) bool {
	for i, w := range prefix {
		if w == words[i] {
			continue
		}
		if partialLast && i == len(prefix)-1 && strings.HasPrefix(words[i], w) {
			continue
		}
		return false
	}
	return true
}

// newRequest builds a GET or HEAD request with the shared headers.
func newRequest(ctx context.Context, method, rawURL, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req, nil
}

// miss logs why an adapter found nothing and returns NotFound.
func miss(logger *zap.Logger, source types.Source, rec types.Record, reason string, err error) types.ResolutionResult {
	if logger != nil {
		fields := []zap.Field{
			zap.String("record_id", rec.Identifier),
			zap.String("adapter", string(source)),
			zap.String("reason", reason),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Debug("adapter miss", fields...)
	}
	return types.NotFound()
}
