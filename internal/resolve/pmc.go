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

// Base URLs for PubMed Central resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	eutilsBase     = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	pmcArticleBase = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
)

// pmcTimeout is short: an identifier lookup is a single indexed query.
const pmcTimeout = 10 * time.Second

// PMCAdapter finds the PubMed Central copy of a PubMed record by asking
// E-utilities esearch for the PMC ID linked to the PMID.
type PMCAdapter struct {
	Client    *http.Client
	Email     string
	APIKey    string
	UserAgent string
	Logger    *zap.Logger
}

func (a *PMCAdapter) Source() types.Source   { return types.SourceRepositoryA }
func (a *PMCAdapter) Host() string           { return ratelimit.HostOf(eutilsBase) }
func (a *PMCAdapter) Timeout() time.Duration { return pmcTimeout }

// Accepts requires a non-empty identifier.
func (a *PMCAdapter) Accepts(rec types.Record) bool {
	return strings.TrimSpace(rec.Identifier) != ""
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

// Resolve queries esearch on the pmc database.
func (a *PMCAdapter) Resolve(ctx context.Context, rec types.Record) types.ResolutionResult {
	id := strings.TrimSpace(rec.Identifier)
	term := id
	if isDigits(id) {
		term = id + "[pmid]"
	}

	params := url.Values{
		"db":      {"pmc"},
		"term":    {term},
		"retmode": {"json"},
		"retmax":  {"1"},
		"tool":    {"paperfetch"},
	}
	if a.Email != "" {
		params.Set("email", a.Email)
	}
	if a.APIKey != "" {
		params.Set("api_key", a.APIKey)
	}

	req, err := newRequest(ctx, http.MethodGet, eutilsBase+"esearch.fcgi?"+params.Encode(), a.UserAgent)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "creating request", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return miss(a.Logger, a.Source(), rec, "esearch request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return miss(a.Logger, a.Source(), rec, fmt.Sprintf("esearch returned HTTP %d", resp.StatusCode), nil)
	}

	var er esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return miss(a.Logger, a.Source(), rec, "parsing esearch response", err)
	}
	if er.Result.Error != "" {
		return miss(a.Logger, a.Source(), rec, "esearch error: "+er.Result.Error, nil)
	}
	if len(er.Result.IDList) == 0 {
		return miss(a.Logger, a.Source(), rec, "no PMC record", nil)
	}

	pmcID := strings.TrimPrefix(strings.TrimSpace(er.Result.IDList[0]), "PMC")
	if pmcID == "" {
		return miss(a.Logger, a.Source(), rec, "empty PMC id", nil)
	}
	return types.FoundAt(a.Source(), pmcArticleBase+"PMC"+pmcID+"/pdf/", types.AccessOpenAccess)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
