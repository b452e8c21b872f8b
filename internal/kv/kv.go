// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package kv provides a small durable key-value store for scalar state that
// outlives a single run: OAuth tokens, token expiries. Backed by BadgerDB.
// Larger catalog data belongs in the database package, not here.
package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Well-known keys.
const (
	KeySpotifyAccessToken  = "spotify_access_token"
	KeySpotifyRefreshToken = "spotify_refresh_token"
	KeySpotifyTokenExpiry  = "spotify_token_expiry"
)

// keyPrefix namespaces all entries written by this package.
const keyPrefix = "kv:"

// ErrKeyNotFound is returned when no value exists for a key.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store is a Badger-backed scalar key-value store. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing Badger handle. The caller retains ownership.
func NewWithDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying Badger handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return fmt.Errorf("kv: get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any existing value.
func (s *Store) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

// GetTime parses the value for key as RFC 3339.
func (s *Store) GetTime(key string) (time.Time, error) {
	raw, err := s.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("kv: parse %s as time: %w", key, err)
	}
	return t, nil
}

// SetTime stores t under key in RFC 3339 form.
func (s *Store) SetTime(key string, t time.Time) error {
	return s.Set(key, t.Format(time.RFC3339))
}
