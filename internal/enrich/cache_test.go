// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package enrich

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cratedig/cratedig/internal/database"
	"github.com/cratedig/cratedig/internal/models"
)

// memStore is an in-memory Store double.
type memStore struct {
	mu      sync.Mutex
	records map[string]*models.EnrichmentRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*models.EnrichmentRecord)}
}

func (s *memStore) GetEnrichment(_ context.Context, albumID string) (*models.EnrichmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[albumID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) UpsertEnrichment(_ context.Context, rec *models.EnrichmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.AlbumID] = &cp
	return nil
}

func TestCacheNeedsRefresh(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		updatedAt time.Time
		absent    bool
		want      bool
	}{
		{name: "absent record", absent: true, want: true},
		{name: "fresh record", updatedAt: base.Add(-time.Hour), want: false},
		{name: "just under ttl", updatedAt: base.Add(-DefaultTTL + time.Second), want: false},
		{name: "exactly ttl old", updatedAt: base.Add(-DefaultTTL), want: true},
		{name: "well past ttl", updatedAt: base.Add(-48 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			if !tt.absent {
				store.records["album-1"] = &models.EnrichmentRecord{
					AlbumID:   "album-1",
					UpdatedAt: tt.updatedAt,
				}
			}

			cache := NewCache(store, DefaultTTL)
			cache.now = func() time.Time { return base }

			got, err := cache.NeedsRefresh(context.Background(), "album-1")
			if err != nil {
				t.Fatalf("NeedsRefresh() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NeedsRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheHasRecord(t *testing.T) {
	store := newMemStore()
	store.records["present"] = &models.EnrichmentRecord{
		AlbumID:   "present",
		UpdatedAt: time.Now().Add(-72 * time.Hour), // staleness must not matter
	}
	cache := NewCache(store, DefaultTTL)

	got, err := cache.HasRecord(context.Background(), "present")
	if err != nil {
		t.Fatalf("HasRecord() error = %v", err)
	}
	if !got {
		t.Error("HasRecord() = false for existing stale record, want true")
	}

	got, err = cache.HasRecord(context.Background(), "missing")
	if err != nil {
		t.Fatalf("HasRecord() error = %v", err)
	}
	if got {
		t.Error("HasRecord() = true for missing record, want false")
	}
}

func TestCacheWriteThrough(t *testing.T) {
	store := newMemStore()
	cache := NewCache(store, DefaultTTL)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	first := &models.EnrichmentRecord{Rating: 3.5, RatingCount: 100}
	if err := cache.WriteThrough(context.Background(), "album-1", first); err != nil {
		t.Fatalf("WriteThrough() error = %v", err)
	}

	stored := store.records["album-1"]
	if stored == nil {
		t.Fatal("record not persisted")
	}
	if stored.AlbumID != "album-1" {
		t.Errorf("AlbumID = %q, want %q", stored.AlbumID, "album-1")
	}
	if !stored.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", stored.UpdatedAt, now)
	}

	// A later write fully replaces and the timestamp advances.
	now = now.Add(time.Hour)
	second := &models.EnrichmentRecord{Rating: 4.1, RatingCount: 250}
	if err := cache.WriteThrough(context.Background(), "album-1", second); err != nil {
		t.Fatalf("WriteThrough() error = %v", err)
	}

	stored = store.records["album-1"]
	if stored.Rating != 4.1 || stored.RatingCount != 250 {
		t.Errorf("record = %+v, want full replacement by second write", stored)
	}
	if !stored.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", stored.UpdatedAt, now)
	}

	// Input record must not be mutated.
	if second.AlbumID != "" || !second.UpdatedAt.IsZero() {
		t.Errorf("input record mutated: %+v", second)
	}
}
