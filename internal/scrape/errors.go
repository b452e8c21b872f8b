// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package scrape implements the metadata fetcher against the community
// review catalog. Pages are fetched with headless Chrome (the target blocks
// plain HTTP clients) and parsed with fixed selectors. The rest of the
// system only sees the fetcher contract; nothing outside this package
// depends on page structure.
package scrape

import "errors"

var (
	// ErrNoResults means the search returned no matching release.
	ErrNoResults = errors.New("scrape: no search results")

	// ErrParse means a page was fetched but its expected structure was
	// missing. Usually a template change on the target.
	ErrParse = errors.New("scrape: page structure not recognized")

	// ErrBlocked means the target refused the request (bot interstitial,
	// access-denied page).
	ErrBlocked = errors.New("scrape: request blocked by target")
)
