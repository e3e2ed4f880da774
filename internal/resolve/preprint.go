// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// biorxivAPIBase is the bioRxiv/medRxiv details endpoint; preprintContent
// maps a server name to the host serving its PDFs. Both are vars so tests
// can substitute httptest servers.
var (
	biorxivAPIBase  = "https://api.biorxiv.org/details/"
	preprintContent = map[string]string{
		"biorxiv": "https://www.biorxiv.org",
		"medrxiv": "https://www.medrxiv.org",
	}
)

const (
	defaultPreprintServer = "biorxiv"
	preprintTimeout       = 15 * time.Second
)

// PreprintAdapter searches the bioRxiv family of preprint servers by title.
type PreprintAdapter struct {
	Client *http.Client
	// Server is "biorxiv" (default) or "medrxiv".
	Server    string
	UserAgent string
	Logger    *zap.Logger
}

func (a *PreprintAdapter) Source() types.Source   { return types.SourcePreprintServer }
func (a *PreprintAdapter) Host() string           { return ratelimit.HostOf(biorxivAPIBase) }
func (a *PreprintAdapter) Timeout() time.Duration { return preprintTimeout }

// Accepts requires a title to search by.
func (a *PreprintAdapter) Accepts(rec types.Record) bool {
	return titleQuery(rec.Title) != ""
}

func (a *PreprintAdapter) server() string {
	s := strings.ToLower(strings.TrimSpace(a.Server))
	if _, ok := preprintContent[s]; !ok {
		return defaultPreprintServer
	}
	return s
}

type biorxivResponse struct {
	Collection []biorxivItem `json:"collection"`
}

type biorxivItem struct {
	DOI     string `json:"doi"`
	Title   string `json:"title"`
	Version string `json:"version"`
	Server  string `json:"server"`
	PDF     string `json:"pdf"`
}

// Resolve looks up the title on the details endpoint and takes the first
// matching preprint.
func (a *PreprintAdapter) Resolve(ctx context.Context, rec types.Record) types.ResolutionResult {
	query := titleQuery(rec.Title)
	server := a.server()
	apiURL := biorxivAPIBase + server + "/" + url.PathEscape(query)

	req, err := newRequest(ctx, http.MethodGet, apiURL, a.UserAgent)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "creating request", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "details request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return miss(a.Logger, a.Source(), rec, fmt.Sprintf("details returned HTTP %d", resp.StatusCode), nil)
	}

	var br biorxivResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return miss(a.Logger, a.Source(), rec, "parsing details response", err)
	}
	if len(br.Collection) == 0 {
		return miss(a.Logger, a.Source(), rec, "no preprint", nil)
	}

	item := br.Collection[0]
	if item.Title != "" && !titlesMatch(query, item.Title) {
		return miss(a.Logger, a.Source(), rec, "title mismatch: "+item.Title, nil)
	}

	pdfURL := preprintPDFURL(server, item)
	if pdfURL == "" {
		return miss(a.Logger, a.Source(), rec, "preprint has no PDF location", nil)
	}
	return types.FoundAt(a.Source(), pdfURL, types.AccessOpenAccess)
}

// preprintPDFURL prefers the item's explicit pdf field, resolving a
// relative path against the content host, and otherwise derives the
// full-text URL from DOI and version.
func preprintPDFURL(server string, item biorxivItem) string {
	if item.Server != "" {
		if _, ok := preprintContent[strings.ToLower(item.Server)]; ok {
			server = strings.ToLower(item.Server)
		}
	}
	host := preprintContent[server]

	if pdf := strings.TrimSpace(item.PDF); pdf != "" {
		if strings.HasPrefix(pdf, "http://") || strings.HasPrefix(pdf, "https://") {
			return pdf
		}
		if !strings.HasPrefix(pdf, "/") {
			pdf = "/" + pdf
		}
		return host + pdf
	}

	if item.DOI == "" {
		return ""
	}
	version := strings.TrimSpace(item.Version)
	if version == "" {
		version = "1"
	}
	return fmt.Sprintf("%s/content/%sv%s.full.pdf", host, item.DOI, version)
}
