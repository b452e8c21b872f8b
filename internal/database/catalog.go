// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cratedig/cratedig/internal/models"
)

// ErrNotFound is returned when a keyed lookup matches nothing.
var ErrNotFound = errors.New("database: not found")

// UpsertAlbum inserts or replaces an album and its artist links. Existing
// albums keep their identity; new artist links are added, none removed.
func (db *DB) UpsertAlbum(ctx context.Context, album *models.Album) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert album: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO albums (id, name) VALUES (?, ?)`,
		album.ID, album.Name); err != nil {
		return fmt.Errorf("upsert album %s: %w", album.ID, err)
	}

	for i, artist := range album.Artists {
		if err := upsertArtistTx(ctx, tx, artist); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO album_artists (album_id, artist_id, position) VALUES (?, ?, ?)`,
			album.ID, artist.ID, i); err != nil {
			return fmt.Errorf("link album %s to artist %s: %w", album.ID, artist.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert album: commit: %w", err)
	}
	return nil
}

func upsertArtistTx(ctx context.Context, tx *sql.Tx, artist models.Artist) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO artists (id, name) VALUES (?, ?)`,
		artist.ID, artist.Name); err != nil {
		return fmt.Errorf("upsert artist %s: %w", artist.ID, err)
	}
	return nil
}

// UpsertTrack inserts or replaces a saved track and its artist links.
func (db *DB) UpsertTrack(ctx context.Context, track *models.Track) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert track: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO tracks (id, name, album_id, popularity) VALUES (?, ?, ?, ?)`,
		track.ID, track.Name, track.AlbumID, track.Popularity); err != nil {
		return fmt.Errorf("upsert track %s: %w", track.ID, err)
	}

	for i, artist := range track.Artists {
		if err := upsertArtistTx(ctx, tx, artist); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO track_artists (track_id, artist_id, position) VALUES (?, ?, ?)`,
			track.ID, artist.ID, i); err != nil {
			return fmt.Errorf("link track %s to artist %s: %w", track.ID, artist.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert track: commit: %w", err)
	}
	return nil
}

// GetAlbum returns one album with its artists, or ErrNotFound.
func (db *DB) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	album := &models.Album{ID: id}
	err := db.conn.QueryRowContext(ctx,
		`SELECT name FROM albums WHERE id = ?`, id).Scan(&album.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get album %s: %w", id, err)
	}

	artists, err := db.albumArtists(ctx, id)
	if err != nil {
		return nil, err
	}
	album.Artists = artists
	return album, nil
}

// ListAlbums returns all albums with their artists, ordered by name.
func (db *DB) ListAlbums(ctx context.Context) ([]models.Album, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM albums ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var albums []models.Album
	for rows.Next() {
		var album models.Album
		if err := rows.Scan(&album.ID, &album.Name); err != nil {
			return nil, fmt.Errorf("list albums: scan: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}

	for i := range albums {
		artists, err := db.albumArtists(ctx, albums[i].ID)
		if err != nil {
			return nil, err
		}
		albums[i].Artists = artists
	}
	return albums, nil
}

// albumArtists returns the album's artists in link position order.
func (db *DB) albumArtists(ctx context.Context, albumID string) ([]models.Artist, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT a.id, a.name
		 FROM album_artists aa JOIN artists a ON a.id = aa.artist_id
		 WHERE aa.album_id = ?
		 ORDER BY aa.position`, albumID)
	if err != nil {
		return nil, fmt.Errorf("album artists %s: %w", albumID, err)
	}
	defer func() { _ = rows.Close() }()

	var artists []models.Artist
	for rows.Next() {
		var artist models.Artist
		if err := rows.Scan(&artist.ID, &artist.Name); err != nil {
			return nil, fmt.Errorf("album artists %s: scan: %w", albumID, err)
		}
		artists = append(artists, artist)
	}
	return artists, rows.Err()
}

// CountAlbums returns the number of catalog albums.
func (db *DB) CountAlbums(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM albums`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count albums: %w", err)
	}
	return n, nil
}
