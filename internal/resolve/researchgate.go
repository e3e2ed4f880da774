// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/ratelimit"
	"github.com/pdiddy/paperfetch/pkg/types"
)

// researchGateSearchBase is the publication search page. Declared as a var
// so tests can substitute an httptest server.
var researchGateSearchBase = "https://www.researchgate.net/search"

const authorCopyTimeout = 30 * time.Second

// AuthorCopyAdapter probes ResearchGate for an author-uploaded copy. The
// index offers no API, so a reachable search page counts as a hit and the
// fetch stage decides whether a document is actually behind it. Hits are
// marked AccessAuthorCopy.
type AuthorCopyAdapter struct {
	Client    *http.Client
	UserAgent string
	Logger    *zap.Logger
}

func (a *AuthorCopyAdapter) Source() types.Source   { return types.SourceAuthorCopyIndex }
func (a *AuthorCopyAdapter) Host() string           { return ratelimit.HostOf(researchGateSearchBase) }
func (a *AuthorCopyAdapter) Timeout() time.Duration { return authorCopyTimeout }

// Accepts requires a title to search by.
func (a *AuthorCopyAdapter) Accepts(rec types.Record) bool {
	return titleQuery(rec.Title) != ""
}

// Resolve issues a HEAD request against the search page.
func (a *AuthorCopyAdapter) Resolve(ctx context.Context, rec types.Record) types.ResolutionResult {
	searchURL := researchGateSearchBase + "?" + url.Values{"q": {titleQuery(rec.Title)}}.Encode()

	req, err := newRequest(ctx, http.MethodHead, searchURL, a.UserAgent)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "creating request", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "search probe", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return miss(a.Logger, a.Source(), rec, fmt.Sprintf("search probe returned HTTP %d", resp.StatusCode), nil)
	}
	return types.FoundAt(a.Source(), searchURL, types.AccessAuthorCopy)
}
