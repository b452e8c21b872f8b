// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package library syncs the user's saved tracks from the Spotify Web API
// into the catalog store and feeds newly discovered albums to the
// enrichment queue.
package library

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cratedig/cratedig/internal/config"
	"github.com/cratedig/cratedig/internal/kv"
	"github.com/cratedig/cratedig/internal/logging"
	"github.com/cratedig/cratedig/internal/metrics"
	"github.com/cratedig/cratedig/internal/models"
)

// Catalog is the slice of the catalog store the sync writes to. Satisfied
// by *database.DB.
type Catalog interface {
	UpsertAlbum(ctx context.Context, album *models.Album) error
	UpsertTrack(ctx context.Context, track *models.Track) error
}

// Client talks to the library provider.
type Client struct {
	cfg  *config.SpotifyConfig
	kv   *kv.Store
	db   Catalog
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a library sync client.
func NewClient(cfg *config.SpotifyConfig, kvStore *kv.Store, db Catalog) *Client {
	return &Client{
		cfg:  cfg,
		kv:   kvStore,
		db:   db,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logging.With().Str("component", "library").Logger(),
	}
}

// apiArtist is the provider's artist shape.
type apiArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// savedTracksPage is one page of the saved-tracks endpoint.
type savedTracksPage struct {
	Items []struct {
		Track struct {
			ID         string      `json:"id"`
			Name       string      `json:"name"`
			Popularity int         `json:"popularity"`
			Artists    []apiArtist `json:"artists"`
			Album      struct {
				ID      string      `json:"id"`
				Name    string      `json:"name"`
				Artists []apiArtist `json:"artists"`
			} `json:"album"`
		} `json:"track"`
	} `json:"items"`
	Next  string `json:"next"`
	Total int    `json:"total"`
}

// Sync walks the user's saved tracks, upserting tracks, albums and artists.
// Returns the albums seen during the sync (deduplicated, discovery order).
func (c *Client) Sync(ctx context.Context) ([]models.Album, error) {
	var albums []models.Album
	seen := make(map[string]struct{})

	synced := 0
	for offset := 0; synced < c.cfg.MaxTracks; offset += c.cfg.PageSize {
		page, err := c.savedTracks(ctx, c.cfg.PageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			track := item.Track

			album := models.Album{
				ID:      track.Album.ID,
				Name:    track.Album.Name,
				Artists: toArtists(track.Album.Artists),
			}
			if err := c.db.UpsertAlbum(ctx, &album); err != nil {
				return nil, err
			}
			if _, dup := seen[album.ID]; !dup {
				seen[album.ID] = struct{}{}
				albums = append(albums, album)
			}

			if err := c.db.UpsertTrack(ctx, &models.Track{
				ID:         track.ID,
				Name:       track.Name,
				AlbumID:    track.Album.ID,
				Popularity: track.Popularity,
				Artists:    toArtists(track.Artists),
			}); err != nil {
				return nil, err
			}

			metrics.LibraryTracksSynced.Inc()
			synced++
		}

		c.log.Info().Int("tracks", synced).Msg("Library page loaded")
		if page.Next == "" {
			break
		}
	}

	c.log.Info().Int("tracks", synced).Int("albums", len(albums)).Msg("Library sync complete")
	return albums, nil
}

// savedTracks fetches one page of the user's saved tracks.
func (c *Client) savedTracks(ctx context.Context, limit, offset int) (*savedTracksPage, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/me/tracks?limit=%d&offset=%d", c.cfg.BaseURL, limit, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("library: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("library: saved tracks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("library: saved tracks: unexpected status %d", resp.StatusCode)
	}

	var page savedTracksPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("library: decode saved tracks: %w", err)
	}
	return &page, nil
}

func toArtists(in []apiArtist) []models.Artist {
	out := make([]models.Artist, len(in))
	for i, a := range in {
		out[i] = models.Artist{ID: a.ID, Name: a.Name}
	}
	return out
}
