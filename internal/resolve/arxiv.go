// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint and arxivPDFBase the host PDFs
// are served from. Declared as vars so tests can substitute httptest servers.
var (
	arxivAPIBase = "https://export.arxiv.org/api/query"
	arxivPDFBase = "https://arxiv.org"
)

const arxivTimeout = 20 * time.Second

// ArxivAdapter searches arXiv by title.
type ArxivAdapter struct {
	Client    *http.Client
	UserAgent string
	Logger    *zap.Logger
}

func (a *ArxivAdapter) Source() types.Source   { return types.SourceSecondaryPreprintServer }
func (a *ArxivAdapter) Host() string           { return ratelimit.HostOf(arxivAPIBase) }
func (a *ArxivAdapter) Timeout() time.Duration { return arxivTimeout }

// Accepts requires a title to search by.
func (a *ArxivAdapter) Accepts(rec types.Record) bool {
	return titleQuery(rec.Title) != ""
}

// Resolve runs a title query and returns the PDF of the first entry whose
// title matches.
func (a *ArxivAdapter) Resolve(ctx context.Context, rec types.Record) types.ResolutionResult {
	query := titleQuery(rec.Title)
	params := url.Values{
		"search_query": {fmt.Sprintf("ti:%q", query)},
		"start":        {"0"},
		"max_results":  {"3"},
	}

	req, err := newRequest(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), a.UserAgent)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "creating request", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "arXiv API request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return miss(a.Logger, a.Source(), rec, fmt.Sprintf("arXiv API returned HTTP %d", resp.StatusCode), nil)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return miss(a.Logger, a.Source(), rec, "parsing arXiv response", err)
	}

	for _, entry := range feed.Entries {
		if !titlesMatch(query, entry.Title) {
			continue
		}
		if pdf := entry.pdfURL(); pdf != "" {
			return types.FoundAt(a.Source(), pdf, types.AccessOpenAccess)
		}
	}
	return miss(a.Logger, a.Source(), rec, fmt.Sprintf("no matching entry among %d", len(feed.Entries)), nil)
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID    string      `xml:"id"`
	Title string      `xml:"title"`
	Links []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// pdfURL prefers the feed's explicit pdf link and falls back to rewriting
// the abstract URL in <id>.
func (e arxivEntry) pdfURL() string {
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return strings.TrimSpace(l.Href)
		}
	}
	const prefix = "/abs/"
	idx := strings.Index(e.ID, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(e.ID[idx+len(prefix):])
	if id == "" {
		return ""
	}
	return arxivPDFBase + "/pdf/" + id
}
