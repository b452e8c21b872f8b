// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package models defines the domain types shared across Cratedig: the
// catalog entities persisted by the store, the enrichment record scraped
// from the community catalog, and the ephemeral chart/scoring types.
package models

import "time"

// Artist is a performing artist discovered during library sync.
type Artist struct {
	// ID is the stable identifier assigned by the library provider.
	ID string `json:"id"`

	// Name is the artist display name.
	Name string `json:"name"`
}

// Album is a library catalog item. Albums are created by library sync and
// are immutable afterwards except for new artist links.
type Album struct {
	// ID is the stable identifier assigned by the library provider.
	ID string `json:"id"`

	// Name is the album display name.
	Name string `json:"name"`

	// Artists lists the album's artists in provider order. The first entry
	// is the primary artist used for enrichment lookups.
	Artists []Artist `json:"artists"`
}

// PrimaryArtist returns the name of the album's first artist, or "" when the
// provider supplied none.
func (a Album) PrimaryArtist() string {
	if len(a.Artists) == 0 {
		return ""
	}
	return a.Artists[0].Name
}

// Track is a saved track from the user's library. Tracks are persisted for
// reporting but carry no enrichment of their own; enrichment is per album.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	AlbumID    string   `json:"album_id"`
	Popularity int      `json:"popularity"`
	Artists    []Artist `json:"artists"`
}

// EnrichmentRecord is the community metadata cached for one album. At most
// one record exists per album id; a re-fetch replaces the record in place
// and the timestamp always advances.
type EnrichmentRecord struct {
	// AlbumID keys the record 1:1 to an Album.
	AlbumID string `json:"album_id"`

	// Rating is the community average rating, effectively 0-5.
	Rating float64 `json:"rating"`

	// RatingCount is the number of community ratings behind Rating.
	RatingCount int `json:"rating_count"`

	// PrimaryGenres are the release's main genre tags, in page order.
	PrimaryGenres []string `json:"primary_genres"`

	// SecondaryGenres are the release's secondary genre tags, in page order.
	SecondaryGenres []string `json:"secondary_genres"`

	// Descriptors are fine-grained mood/style tags, in page order.
	Descriptors []string `json:"descriptors"`

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// ChartCandidate is an album observed on an external chart page. Candidates
// carry their own scraped metadata and are not necessarily present in the
// catalog; they live only for the duration of one scoring run.
type ChartCandidate struct {
	Name            string   `json:"name"`
	ArtistNames     []string `json:"artist_names"`
	Rank            int      `json:"rank"`
	Rating          float64  `json:"rating"`
	RatingCount     int      `json:"rating_count"`
	PrimaryGenres   []string `json:"primary_genres"`
	SecondaryGenres []string `json:"secondary_genres"`
	Descriptors     []string `json:"descriptors"`
}

// TagCount pairs a tag value with its occurrence count across all
// enrichment records.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
