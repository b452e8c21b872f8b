// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package enrich

import (
	"context"

	"github.com/cratedig/cratedig/internal/models"
)

// EnqueueIfMissing is the producer-side admission path: the album is pushed
// onto the queue only when the store holds no enrichment record for it.
// Returns true when a job was admitted.
//
// The existence check and the enqueue are not atomic; the queue's per-album
// idempotency key covers the window between them.
func (q *Queue) EnqueueIfMissing(ctx context.Context, album *models.Album) (bool, error) {
	exists, err := q.cache.HasRecord(ctx, album.ID)
	if err != nil {
		return false, err
	}
	if exists {
		q.log.Info().Str("album", album.Name).Msg("Skipping enrichment; record already present")
		return false, nil
	}
	return q.Enqueue(album), nil
}

// RefreshSync is the queue-bypassing on-demand path: fetch and write through
// immediately when the record is missing or stale, trading throttling for
// immediacy. Callers spacing out their own requests (backfill) use this.
// Returns true when a fetch happened.
func (q *Queue) RefreshSync(ctx context.Context, album *models.Album) (bool, error) {
	stale, err := q.cache.NeedsRefresh(ctx, album.ID)
	if err != nil {
		return false, err
	}
	if !stale {
		q.log.Info().Str("album", album.Name).Msg("Skipping enrichment; record is fresh")
		return false, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, q.fetchTimeout)
	defer cancel()

	rec, err := q.fetcher.FetchAlbum(fetchCtx, album.Name, album.PrimaryArtist())
	if err != nil {
		return false, err
	}
	if err := q.cache.WriteThrough(ctx, album.ID, rec); err != nil {
		return false, err
	}
	return true, nil
}
