// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package kv

import (
	"errors"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func TestStoreGetSet(t *testing.T) {
	store := testStore(t)

	if _, err := store.Get(KeySpotifyAccessToken); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}

	if err := store.Set(KeySpotifyAccessToken, "token-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get(KeySpotifyAccessToken)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "token-1" {
		t.Errorf("Get() = %q, want token-1", got)
	}

	// Overwrite replaces.
	if err := store.Set(KeySpotifyAccessToken, "token-2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := store.Get(KeySpotifyAccessToken); got != "token-2" {
		t.Errorf("Get() after overwrite = %q, want token-2", got)
	}
}

func TestStoreTimeRoundTrip(t *testing.T) {
	store := testStore(t)

	expiry := time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)
	if err := store.SetTime(KeySpotifyTokenExpiry, expiry); err != nil {
		t.Fatalf("SetTime() error = %v", err)
	}

	got, err := store.GetTime(KeySpotifyTokenExpiry)
	if err != nil {
		t.Fatalf("GetTime() error = %v", err)
	}
	if !got.Equal(expiry) {
		t.Errorf("GetTime() = %v, want %v", got, expiry)
	}
}

func TestStoreGetTimeRejectsGarbage(t *testing.T) {
	store := testStore(t)

	if err := store.Set(KeySpotifyTokenExpiry, "not-a-timestamp"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetTime(KeySpotifyTokenExpiry); err == nil {
		t.Error("GetTime() = nil error for malformed value, want parse error")
	}
}
