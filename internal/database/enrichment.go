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

// GetEnrichment returns the enrichment record for an album, or ErrNotFound.
func (db *DB) GetEnrichment(ctx context.Context, albumID string) (*models.EnrichmentRecord, error) {
	rec := &models.EnrichmentRecord{AlbumID: albumID}
	err := db.conn.QueryRowContext(ctx,
		`SELECT rating, rating_count, updated_at FROM enrichment WHERE album_id = ?`,
		albumID).Scan(&rec.Rating, &rec.RatingCount, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get enrichment %s: %w", albumID, err)
	}

	for _, dim := range []models.TagDimension{
		models.DimensionPrimaryGenre,
		models.DimensionSecondaryGenre,
		models.DimensionDescriptor,
	} {
		tags, err := db.enrichmentTags(ctx, albumID, dim)
		if err != nil {
			return nil, err
		}
		switch dim {
		case models.DimensionPrimaryGenre:
			rec.PrimaryGenres = tags
		case models.DimensionSecondaryGenre:
			rec.SecondaryGenres = tags
		case models.DimensionDescriptor:
			rec.Descriptors = tags
		}
	}
	return rec, nil
}

// UpsertEnrichment inserts or fully replaces the record for rec.AlbumID,
// including its tag rows. Atomic per album: concurrent writers for the same
// id resolve last-write-wins inside one transaction.
func (db *DB) UpsertEnrichment(ctx context.Context, rec *models.EnrichmentRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert enrichment: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO enrichment (album_id, rating, rating_count, updated_at)
		 VALUES (?, ?, ?, ?)`,
		rec.AlbumID, rec.Rating, rec.RatingCount, rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert enrichment %s: %w", rec.AlbumID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM enrichment_tags WHERE album_id = ?`, rec.AlbumID); err != nil {
		return fmt.Errorf("clear enrichment tags %s: %w", rec.AlbumID, err)
	}

	for _, dim := range []models.TagDimension{
		models.DimensionPrimaryGenre,
		models.DimensionSecondaryGenre,
		models.DimensionDescriptor,
	} {
		for i, tag := range rec.Tags(dim) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO enrichment_tags (album_id, dimension, tag, position)
				 VALUES (?, ?, ?, ?)`,
				rec.AlbumID, string(dim), tag, i); err != nil {
				return fmt.Errorf("insert enrichment tag %s/%s: %w", rec.AlbumID, tag, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert enrichment: commit: %w", err)
	}
	return nil
}

// enrichmentTags returns one dimension's tags in page order.
func (db *DB) enrichmentTags(ctx context.Context, albumID string, dim models.TagDimension) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag FROM enrichment_tags
		 WHERE album_id = ? AND dimension = ?
		 ORDER BY position`, albumID, string(dim))
	if err != nil {
		return nil, fmt.Errorf("enrichment tags %s/%s: %w", albumID, dim, err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("enrichment tags %s/%s: scan: %w", albumID, dim, err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// CountEnrichment returns the number of enrichment records.
func (db *DB) CountEnrichment(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrichment`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count enrichment: %w", err)
	}
	return n, nil
}

// SortedRatings returns every stored rating, ascending. Fed to the scorer's
// rank percentile.
func (db *DB) SortedRatings(ctx context.Context) ([]float64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT rating FROM enrichment ORDER BY rating ASC`)
	if err != nil {
		return nil, fmt.Errorf("sorted ratings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ratings []float64
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("sorted ratings: scan: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// SortedRatingCounts returns every stored rating count, ascending.
func (db *DB) SortedRatingCounts(ctx context.Context) ([]float64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT rating_count FROM enrichment ORDER BY rating_count ASC`)
	if err != nil {
		return nil, fmt.Errorf("sorted rating counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("sorted rating counts: scan: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TagFrequencies returns the distinct tags of one dimension paired with
// their occurrence counts, ascending by count. Count ties order by tag so
// the table is deterministic across runs.
func (db *DB) TagFrequencies(ctx context.Context, dim models.TagDimension) ([]models.TagCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag, COUNT(*) AS n
		 FROM enrichment_tags
		 WHERE dimension = ?
		 GROUP BY tag
		 ORDER BY n ASC, tag ASC`, string(dim))
	if err != nil {
		return nil, fmt.Errorf("tag frequencies %s: %w", dim, err)
	}
	defer func() { _ = rows.Close() }()

	var table []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("tag frequencies %s: scan: %w", dim, err)
		}
		table = append(table, tc)
	}
	return table, rows.Err()
}

// DescriptorsForPrimaryGenre returns the descriptor lists of every album
// whose primary genres include genre. Feeds the co-occurrence report.
func (db *DB) DescriptorsForPrimaryGenre(ctx context.Context, genre string) ([][]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT album_id FROM enrichment_tags
		 WHERE dimension = ? AND tag = ?`,
		string(models.DimensionPrimaryGenre), genre)
	if err != nil {
		return nil, fmt.Errorf("albums for genre %s: %w", genre, err)
	}
	defer func() { _ = rows.Close() }()

	var albumIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("albums for genre %s: scan: %w", genre, err)
		}
		albumIDs = append(albumIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lists := make([][]string, 0, len(albumIDs))
	for _, id := range albumIDs {
		descriptors, err := db.enrichmentTags(ctx, id, models.DimensionDescriptor)
		if err != nil {
			return nil, err
		}
		lists = append(lists, descriptors)
	}
	return lists, nil
}

// DescriptorCountsForPrimaryGenre returns descriptor frequencies across
// albums whose primary genres include genre, most common first.
func (db *DB) DescriptorCountsForPrimaryGenre(ctx context.Context, genre string) ([]models.TagCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.tag, COUNT(*) AS n
		 FROM enrichment_tags t
		 WHERE t.dimension = ?
		   AND t.album_id IN (
		     SELECT album_id FROM enrichment_tags
		     WHERE dimension = ? AND tag = ?
		   )
		 GROUP BY t.tag
		 ORDER BY n DESC, t.tag ASC`,
		string(models.DimensionDescriptor),
		string(models.DimensionPrimaryGenre), genre)
	if err != nil {
		return nil, fmt.Errorf("descriptor counts for genre %s: %w", genre, err)
	}
	defer func() { _ = rows.Close() }()

	var table []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("descriptor counts for genre %s: scan: %w", genre, err)
		}
		table = append(table, tc)
	}
	return table, rows.Err()
}
