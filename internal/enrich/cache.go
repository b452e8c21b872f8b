// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package enrich implements the enrichment pipeline: the staleness-aware
// write-through cache over the catalog store and the rate-limited,
// pause-on-failure job queue that sequences calls into the metadata fetcher.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cratedig/cratedig/internal/database"
	"github.com/cratedig/cratedig/internal/models"
)

// DefaultTTL is the staleness window: a record this old is eligible for
// re-fetch. Records are never evicted, only refreshed.
const DefaultTTL = 24 * time.Hour

// Store is the slice of the catalog store the cache needs.
type Store interface {
	GetEnrichment(ctx context.Context, albumID string) (*models.EnrichmentRecord, error)
	UpsertEnrichment(ctx context.Context, rec *models.EnrichmentRecord) error
}

// Cache decides fetch necessity and persists fetch results idempotently.
// It is the single write path for enrichment records: the queue worker and
// the synchronous backfill path both converge here.
type Cache struct {
	store Store
	ttl   time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewCache creates a cache over store. ttl <= 0 selects DefaultTTL.
func NewCache(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// NeedsRefresh reports whether albumID requires a fresh fetch: true when no
// record exists or the existing record's age is at least the TTL.
func (c *Cache) NeedsRefresh(ctx context.Context, albumID string) (bool, error) {
	rec, err := c.store.GetEnrichment(ctx, albumID)
	if errors.Is(err, database.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("enrich: staleness check %s: %w", albumID, err)
	}
	return c.now().Sub(rec.UpdatedAt) >= c.ttl, nil
}

// HasRecord reports whether any record exists for albumID, regardless of
// age. This is the producer's admission check: items with a record are not
// enqueued, stale ones are picked up by the backfill path instead.
func (c *Cache) HasRecord(ctx context.Context, albumID string) (bool, error) {
	_, err := c.store.GetEnrichment(ctx, albumID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("enrich: record check %s: %w", albumID, err)
	}
	return true, nil
}

// WriteThrough upserts the record for albumID, stamping it with the current
// time. Insert if absent, full replace if present; the timestamp always
// advances. Last write wins under concurrent callers.
func (c *Cache) WriteThrough(ctx context.Context, albumID string, rec *models.EnrichmentRecord) error {
	stamped := *rec
	stamped.AlbumID = albumID
	stamped.UpdatedAt = c.now()
	if err := c.store.UpsertEnrichment(ctx, &stamped); err != nil {
		return fmt.Errorf("enrich: write through %s: %w", albumID, err)
	}
	return nil
}
