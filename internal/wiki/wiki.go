// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wiki queries the MediaWiki Action API for article summaries and URLs.
// Implements: prd003-enrichment-pipeline R2 (external lookup);
//
//	docs/ARCHITECTURE § Wikipedia Lookup.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/enrichdoc/internal/httputil"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

// ErrUnavailable wraps lookup service failures. An empty result set is a
// valid "no results" response, not an error.
var ErrUnavailable = errors.New("lookup service unavailable")

const (
	defaultLanguage    = "en"
	defaultMaxResults  = 5
	defaultSentences   = 5
	defaultHTTPTimeout = 30 * time.Second
)

// Result is one article match: title, plain-text summary, and canonical URL.
type Result struct {
	Title   string `json:"title" yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
	URL     string `json:"url" yaml:"url"`
}

// Backend looks up articles for a query. Implementations follow the
// Strategy pattern so tests can supply canned results.
type Backend interface {
	Name() string
	Lookup(ctx context.Context, query string) ([]Result, error)
}

// APIBackend queries a Wikipedia language edition through the MediaWiki
// Action API (generator=search with intro extracts and canonical URLs).
type APIBackend struct {
	// Client is the HTTP client; nil uses a default with the configured timeout.
	Client *http.Client

	// Config holds language, result, and HTTP settings.
	Config types.WikiConfig

	// BaseURL overrides the derived https://{lang}.wikipedia.org/w/api.php
	// endpoint. Tests point it at an httptest server.
	BaseURL string

	// AccessToken is an optional Wikimedia API token for higher rate limits.
	AccessToken string
}

// Name returns the backend identifier.
func (b *APIBackend) Name() string { return "wikipedia/" + b.language() }

func (b *APIBackend) language() string {
	if b.Config.Language == "" {
		return defaultLanguage
	}
	return b.Config.Language
}

func (b *APIBackend) endpoint() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", b.language())
}

// Lookup searches for query and returns matches in relevance order. Service
// failures are wrapped in ErrUnavailable; no matches yields an empty slice.
func (b *APIBackend) Lookup(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	maxResults := b.Config.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	sentences := b.Config.SummarySentences
	if sentences <= 0 {
		sentences = defaultSentences
	}

	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"generator":   {"search"},
		"gsrsearch":   {query},
		"gsrlimit":    {fmt.Sprintf("%d", maxResults)},
		"prop":        {"extracts|info"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"exsentences": {fmt.Sprintf("%d", sentences)},
		"inprop":      {"url"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.Config.UserAgent)
	if b.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+b.AccessToken)
	}

	client := b.Client
	if client == nil {
		timeout := b.Config.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, b.Config.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: MediaWiki API returned HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var mr mediaWikiResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("%w: parsing MediaWiki response: %v", ErrUnavailable, err)
	}

	// Pages arrive as a map; the search rank is in each page's index field.
	pages := make([]mediaWikiPage, 0, len(mr.Query.Pages))
	for _, p := range mr.Query.Pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	var results []Result
	for _, p := range pages {
		if p.Title == "" {
			continue
		}
		u := p.FullURL
		if u == "" {
			u = PageURL(b.language(), p.Title)
		}
		results = append(results, Result{
			Title:   p.Title,
			Summary: strings.TrimSpace(p.Extract),
			URL:     u,
		})
	}
	return results, nil
}

// PageURL builds the canonical article URL for a title in a language edition.
func PageURL(language, title string) string {
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s",
		language, url.PathEscape(strings.ReplaceAll(title, " ", "_")))
}

// MediaWiki API JSON structures.
type mediaWikiResponse struct {
	Query mediaWikiQuery `json:"query"`
}

type mediaWikiQuery struct {
	Pages map[string]mediaWikiPage `json:"pages"`
}

type mediaWikiPage struct {
	PageID  int    `json:"pageid"`
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
	FullURL string `json:"fullurl"`
}
