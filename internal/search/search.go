// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries PubMed for bibliographic records. It is the
// metadata source that feeds the retrieval engine: esearch finds PMIDs
// for a query, esummary turns them into Records. Results are written to
// a records file that the fetch stage reads back.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/httputil"
	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// eutilsBase is the NCBI E-utilities endpoint. Declared as a var so tests
// can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const (
	defaultMaxResults = 50
	defaultPageSize   = 100
)

// Query holds the search parameters.
type Query struct {
	// Term is a PubMed query expression.
	Term string
	// FromYear and ToYear bound the publication date; zero means open.
	FromYear int
	ToYear   int
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Term) == ""
}

// Expression returns the esearch term with the publication-date filter
// appended.
func (q Query) Expression() string {
	term := strings.TrimSpace(q.Term)
	switch {
	case q.FromYear > 0 && q.ToYear > 0:
		return fmt.Sprintf("%s AND (%d:%d[PDAT])", term, q.FromYear, q.ToYear)
	case q.FromYear > 0:
		return fmt.Sprintf("%s AND (%d[PDAT] : 3000[PDAT])", term, q.FromYear)
	case q.ToYear > 0:
		return fmt.Sprintf("%s AND (0001[PDAT] : %d[PDAT])", term, q.ToYear)
	}
	return term
}

// Output holds the records and the total number of matches PubMed
// reported, which may exceed len(Records).
type Output struct {
	Records []types.Record
	Matches int
}

// Client searches PubMed.
type Client struct {
	HTTP    *http.Client
	Config  types.SearchConfig
	Limiter *ratelimit.Limiter
	Logger  *zap.Logger
}

// Search runs esearch, paging until MaxResults IDs are collected, then
// fetches summaries for them in pages. Records keep PubMed's relevance
// order.
func (c *Client) Search(ctx context.Context, q Query) (Output, error) {
	if q.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide a PubMed search expression")
	}

	maxResults := c.Config.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	pageSize := c.Config.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	expr := q.Expression()
	c.logger().Info("searching PubMed", zap.String("query", expr), zap.Int("max_results", maxResults))

	var ids []string
	matches := 0
	for start := 0; len(ids) < maxResults; start += pageSize {
		n := min(pageSize, maxResults-len(ids))
		page, count, err := c.esearch(ctx, expr, start, n)
		if err != nil {
			return Output{}, err
		}
		matches = count
		ids = append(ids, page...)
		if len(page) < n || start+len(page) >= count {
			break
		}
	}

	out := Output{Matches: matches}
	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))
		recs, err := c.esummary(ctx, ids[start:end])
		if err != nil {
			return Output{}, err
		}
		out.Records = append(out.Records, recs...)
	}

	c.logger().Info("PubMed search finished", zap.Int("matches", matches), zap.Int("records", len(out.Records)))
	return out, nil
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Client) params(extra url.Values) url.Values {
	v := url.Values{"db": {"pubmed"}, "retmode": {"json"}, "tool": {"paperfetch"}}
	if c.Config.Email != "" {
		v.Set("email", c.Config.Email)
	}
	if c.Config.APIKey != "" {
		v.Set("api_key", c.Config.APIKey)
	}
	for k, vals := range extra {
		v[k] = vals
	}
	return v
}

// get issues one E-utilities call, retrying on HTTP 429, and decodes the
// JSON body into dst.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dst any) error {
	rawURL := eutilsBase + endpoint + "?" + params.Encode()
	if err := c.Limiter.WaitURL(ctx, rawURL); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: c.Config.Timeout}
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("parsing %s response: %w", endpoint, err)
	}
	return nil
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
	Error string `json:"error"`
}

func (c *Client) esearch(ctx context.Context, expr string, start, n int) ([]string, int, error) {
	var er esearchResponse
	err := c.get(ctx, "esearch.fcgi", c.params(url.Values{
		"term":     {expr},
		"sort":     {"relevance"},
		"retstart": {strconv.Itoa(start)},
		"retmax":   {strconv.Itoa(n)},
	}), &er)
	if err != nil {
		return nil, 0, err
	}
	if msg := er.Error + er.Result.Error; msg != "" {
		return nil, 0, fmt.Errorf("esearch error: %s", msg)
	}
	count, _ := strconv.Atoi(er.Result.Count)
	return er.Result.IDList, count, nil
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
	Error  string                     `json:"error"`
}

type summaryDoc struct {
	UID             string `json:"uid"`
	Title           string `json:"title"`
	PubDate         string `json:"pubdate"`
	EPubDate        string `json:"epubdate"`
	Source          string `json:"source"`
	FullJournalName string `json:"fulljournalname"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
	Error string `json:"error"`
}

func (c *Client) esummary(ctx context.Context, ids []string) ([]types.Record, error) {
	var sr esummaryResponse
	err := c.get(ctx, "esummary.fcgi", c.params(url.Values{
		"id": {strings.Join(ids, ",")},
	}), &sr)
	if err != nil {
		return nil, err
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("esummary error: %s", sr.Error)
	}

	var recs []types.Record
	for _, id := range ids {
		raw, ok := sr.Result[id]
		if !ok {
			c.logger().Warn("summary missing for PMID", zap.String("record_id", id))
			continue
		}
		var doc summaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			c.logger().Warn("skipping unparseable summary", zap.String("record_id", id), zap.Error(err))
			continue
		}
		if doc.Error != "" {
			c.logger().Warn("summary error", zap.String("record_id", id), zap.String("error", doc.Error))
			continue
		}
		recs = append(recs, doc.record(id))
	}
	return recs, nil
}

var yearPattern = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)

func (d summaryDoc) record(id string) types.Record {
	rec := types.Record{
		Identifier: id,
		Title:      strings.TrimSuffix(strings.TrimSpace(d.Title), "."),
		Journal:    d.FullJournalName,
	}
	if rec.Journal == "" {
		rec.Journal = d.Source
	}
	for _, a := range d.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	for _, date := range []string{d.PubDate, d.EPubDate} {
		if m := yearPattern.FindString(date); m != "" {
			rec.Year, _ = strconv.Atoi(m)
			break
		}
	}
	for _, aid := range d.ArticleIDs {
		if aid.IDType == "doi" {
			rec.DOI = aid.Value
			break
		}
	}
	return rec
}
