// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/net/html"

	"github.com/cratedig/cratedig/internal/config"
	"github.com/cratedig/cratedig/internal/logging"
	"github.com/cratedig/cratedig/internal/metrics"
	"github.com/cratedig/cratedig/internal/models"
)

// Client fetches catalog pages through headless Chrome. One Client owns one
// browser and one stealth page; calls are not concurrency-safe, matching
// the queue's single-consumer design.
//
// A circuit breaker wraps page fetches. The queue already pauses itself on
// job failure; the breaker additionally protects the queue-bypassing
// synchronous path from hammering a blocking target.
type Client struct {
	cfg     *config.ScrapeConfig
	browser *rod.Browser
	page    *rod.Page
	cb      *gobreaker.CircuitBreaker[string]
	log     zerolog.Logger
}

// NewClient launches the browser and opens a stealth page.
func NewClient(cfg *config.ScrapeConfig) (*Client, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("scrape: launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("scrape: connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("scrape: open stealth page: %w", err)
	}

	log := logging.With().Str("component", "scrape").Logger()

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "catalog-fetch",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Minute,

		// A scraping target that failed three times in a row is almost
		// certainly blocking us; stop immediately rather than at a ratio.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", breakerStateString(from)).Str("to", breakerStateString(to)).Msg("Fetch breaker state transition")
			metrics.BreakerState.Set(breakerStateFloat(to))
		},
	})

	return &Client{
		cfg:     cfg,
		browser: browser,
		page:    page,
		cb:      cb,
		log:     log,
	}, nil
}

// Close shuts the browser down.
func (c *Client) Close() error {
	return c.browser.Close()
}

// FetchAlbum looks the album up on the catalog and scrapes its release
// page. Implements the enrich.Fetcher contract; safe to retry.
func (c *Client) FetchAlbum(ctx context.Context, albumName, artistName string) (*models.EnrichmentRecord, error) {
	query := strings.TrimSpace(artistName + " " + albumName)

	searchDoc, err := c.fetchDoc(ctx, c.catalogURL("search", url.Values{
		"searchterm": {query},
		"searchtype": {"l"},
	}))
	if err != nil {
		return nil, err
	}

	results := parseSearchResults(searchDoc)
	if len(results) == 0 {
		metrics.FetchErrors.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
	}

	releaseDoc, err := c.fetchDoc(ctx, c.catalogURL(strings.TrimPrefix(results[0].ReleaseHref, "/"), nil))
	if err != nil {
		return nil, err
	}

	rec, err := parseRelease(releaseDoc)
	if err != nil {
		metrics.FetchErrors.WithLabelValues("parse").Inc()
		return nil, err
	}

	c.log.Debug().Str("album", albumName).Float64("rating", rec.Rating).Msg("Release page scraped")
	return rec, nil
}

// FetchChart scrapes one page of the top-albums chart for a period.
// excludeGenres filters server-side, e.g. ["hip-hop"].
func (c *Client) FetchChart(ctx context.Context, period string, page int, excludeGenres []string) ([]models.ChartCandidate, error) {
	path := fmt.Sprintf("charts/top/album/%s%s/%d/", period, genreFilter(excludeGenres), page)

	doc, err := c.fetchDoc(ctx, c.catalogURL(path, nil))
	if err != nil {
		return nil, err
	}

	candidates, err := parseChart(doc)
	if err != nil {
		metrics.FetchErrors.WithLabelValues("parse").Inc()
		return nil, err
	}
	return candidates, nil
}

// genreFilter renders the chart's genre-exclusion path segment.
func genreFilter(exclude []string) string {
	if len(exclude) == 0 {
		return ""
	}
	negated := make([]string, len(exclude))
	for i, g := range exclude {
		negated[i] = "-" + g
	}
	return "/g:" + strings.Join(negated, ",")
}

// catalogURL builds a target URL from a path and optional query parameters.
func (c *Client) catalogURL(path string, params url.Values) string {
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// fetchDoc navigates to a URL through the circuit breaker and parses the
// resulting HTML.
func (c *Client) fetchDoc(ctx context.Context, pageURL string) (*html.Node, error) {
	raw, err := c.cb.Execute(func() (string, error) {
		return c.fetchHTML(ctx, pageURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.FetchErrors.WithLabelValues("blocked").Inc()
			return nil, fmt.Errorf("%w: breaker open", ErrBlocked)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.FetchErrors.WithLabelValues("timeout").Inc()
		} else {
			metrics.FetchErrors.WithLabelValues("other").Inc()
		}
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		metrics.FetchErrors.WithLabelValues("parse").Inc()
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if looksBlocked(doc) {
		metrics.FetchErrors.WithLabelValues("blocked").Inc()
		return nil, fmt.Errorf("%w at %s", ErrBlocked, pageURL)
	}
	return doc, nil
}

// fetchHTML performs one bounded navigation and returns the page HTML.
func (c *Client) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, c.cfg.NavTimeout)
	defer cancel()

	page := c.page.Context(navCtx)
	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("scrape: navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("scrape: wait load %s: %w", pageURL, err)
	}

	raw, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("scrape: read html %s: %w", pageURL, err)
	}
	return raw, nil
}

// breakerStateFloat maps breaker states onto the metrics gauge.
func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// breakerStateString names breaker states for logs.
func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
