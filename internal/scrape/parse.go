// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package scrape

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cratedig/cratedig/internal/models"
)

// searchResult is one hit on the catalog search page.
type searchResult struct {
	ReleaseName string
	ReleaseHref string
}

// parseSearchResults extracts release hits from a search page document.
func parseSearchResults(doc *html.Node) []searchResult {
	var results []searchResult
	for _, box := range findAllByClass(doc, "infobox") {
		link := findFirstByClass(box, "searchpage")
		if link == nil || link.DataAtom != atom.A {
			continue
		}
		results = append(results, searchResult{
			ReleaseName: strings.TrimSpace(textContent(link)),
			ReleaseHref: attrVal(link, "href"),
		})
	}
	return results
}

// parseRelease extracts the enrichment fields from a release page document.
func parseRelease(doc *html.Node) (*models.EnrichmentRecord, error) {
	page := findFirstByClass(doc, "release_page")
	if page == nil {
		return nil, fmt.Errorf("%w: release_page container missing", ErrParse)
	}

	rating, err := parseNumber(metaItemprop(page, "ratingValue"))
	if err != nil {
		return nil, fmt.Errorf("%w: rating: %v", ErrParse, err)
	}
	ratingCount, err := parseNumber(metaItemprop(page, "ratingCount"))
	if err != nil {
		return nil, fmt.Errorf("%w: rating count: %v", ErrParse, err)
	}

	rec := &models.EnrichmentRecord{
		Rating:      rating,
		RatingCount: int(ratingCount),
	}

	if genres := findFirstByClass(page, "release_pri_genres"); genres != nil {
		rec.PrimaryGenres = classTexts(genres, "genre")
	}
	if genres := findFirstByClass(page, "release_sec_genres"); genres != nil {
		rec.SecondaryGenres = classTexts(genres, "genre")
	}
	if descriptors := findFirstByClass(page, "release_descriptors"); descriptors != nil {
		for _, meta := range findAllByTag(descriptors, atom.Meta) {
			if content := strings.TrimSpace(attrVal(meta, "content")); content != "" {
				rec.Descriptors = append(rec.Descriptors, content)
			}
		}
	}

	return rec, nil
}

// parseChart extracts chart entries from a chart page document.
func parseChart(doc *html.Node) ([]models.ChartCandidate, error) {
	items := findAllByClass(doc, "chart_item_release")
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no chart items on page", ErrParse)
	}

	candidates := make([]models.ChartCandidate, 0, len(items))
	for _, item := range items {
		var c models.ChartCandidate
		c.Name = strings.TrimSpace(classText(item, "topcharts_item_title"))

		if artists := findFirstByClass(item, "topcharts_item_artist"); artists != nil {
			for _, a := range findAllByTag(artists, atom.A) {
				if name := strings.TrimSpace(textContent(a)); name != "" {
					c.ArtistNames = append(c.ArtistNames, name)
				}
			}
		}

		if rank, err := parseNumber(dropTrailingDot(classText(item, "topcharts_position"))); err == nil {
			c.Rank = int(rank)
		}
		if rating, err := parseNumber(classText(item, "topcharts_avg_rating_stat")); err == nil {
			c.Rating = rating
		}
		if count, err := parseNumber(classText(item, "topcharts_ratings_stat")); err == nil {
			c.RatingCount = int(count)
		}

		if genres := findFirstByClass(item, "topcharts_item_genres_container"); genres != nil {
			for _, a := range findAllByTag(genres, atom.A) {
				c.PrimaryGenres = append(c.PrimaryGenres, strings.TrimSpace(textContent(a)))
			}
		}
		if genres := findFirstByClass(item, "topcharts_item_secondarygenres_container"); genres != nil {
			for _, a := range findAllByTag(genres, atom.A) {
				c.SecondaryGenres = append(c.SecondaryGenres, strings.TrimSpace(textContent(a)))
			}
		}
		if descriptors := findFirstByClass(item, "topcharts_item_descriptors_container"); descriptors != nil {
			for _, span := range findAllByTag(descriptors, atom.Span) {
				if d := dropTrailingComma(textContent(span)); d != "" {
					c.Descriptors = append(c.Descriptors, d)
				}
			}
		}

		candidates = append(candidates, c)
	}
	return candidates, nil
}

// looksBlocked reports whether the document is a bot interstitial rather
// than catalog content.
func looksBlocked(doc *html.Node) bool {
	title := strings.ToLower(pageTitle(doc))
	for _, marker := range []string{"access denied", "are you a human", "attention required", "just a moment"} {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// parseNumber parses a page number, tolerating thousands separators.
// Empty or unparseable input is an error; the original treated it as zero,
// which silently stored empty records.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return n, nil
}

// dropTrailingComma trims whitespace and one trailing comma.
func dropTrailingComma(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ","))
}

// dropTrailingDot trims whitespace and one trailing dot (chart positions
// render as "12.").
func dropTrailingDot(s string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "."))
}

// ---- minimal DOM helpers over x/net/html ----

// hasClass reports whether an element node carries the CSS class.
func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, f := range strings.Fields(attrVal(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

// findAllByClass returns all element nodes under root with the class, in
// document order.
func findAllByClass(root *html.Node, class string) []*html.Node {
	var matches []*html.Node
	walk(root, func(n *html.Node) {
		if hasClass(n, class) {
			matches = append(matches, n)
		}
	})
	return matches
}

// findFirstByClass returns the first element with the class, or nil.
func findFirstByClass(root *html.Node, class string) *html.Node {
	for _, n := range findAllByClass(root, class) {
		return n
	}
	return nil
}

// findAllByTag returns all elements of the given tag under root.
func findAllByTag(root *html.Node, tag atom.Atom) []*html.Node {
	var matches []*html.Node
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			matches = append(matches, n)
		}
	})
	return matches
}

// metaItemprop returns the content attribute of the first
// <meta itemprop=name> under root.
func metaItemprop(root *html.Node, name string) string {
	for _, meta := range findAllByTag(root, atom.Meta) {
		if attrVal(meta, "itemprop") == name {
			return attrVal(meta, "content")
		}
	}
	return ""
}

// classText returns the text content of the first element with the class.
func classText(root *html.Node, class string) string {
	n := findFirstByClass(root, class)
	if n == nil {
		return ""
	}
	return textContent(n)
}

// classTexts returns the trimmed texts of every element with the class.
func classTexts(root *html.Node, class string) []string {
	var texts []string
	for _, n := range findAllByClass(root, class) {
		if t := strings.TrimSpace(textContent(n)); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

// pageTitle returns the document's <title> text.
func pageTitle(doc *html.Node) string {
	for _, t := range findAllByTag(doc, atom.Title) {
		return textContent(t)
	}
	return ""
}

// attrVal returns the value of the named attribute, or "".
func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates all text nodes under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

// walk visits n and its subtree in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}
