// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package database implements the catalog store on DuckDB: library items
// discovered by sync, per-album enrichment records, and the aggregate
// queries the scorer reads. Callers treat it as keyed lookup/upsert; no
// other package depends on the schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/cratedig/cratedig/internal/config"
	"github.com/cratedig/cratedig/internal/logging"
)

// DB wraps the DuckDB connection and provides catalog data access.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for the database file.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// DuckDB is an in-process engine; a single connection avoids write
	// contention between the sync producer and the queue worker.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, cfg: cfg}
	if err := db.initSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Debug().Str("path", cfg.Path).Msg("Catalog store opened")
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates all tables if absent. Tag lists are normalized into
// enrichment_tags so frequency tables come straight from GROUP BY.
func (db *DB) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS albums (
			id   VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS artists (
			id   VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS album_artists (
			album_id  VARCHAR NOT NULL,
			artist_id VARCHAR NOT NULL,
			position  INTEGER NOT NULL,
			PRIMARY KEY (album_id, artist_id)
		)`,
		`CREATE TABLE IF NOT EXISTS tracks (
			id         VARCHAR PRIMARY KEY,
			name       VARCHAR NOT NULL,
			album_id   VARCHAR NOT NULL,
			popularity INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS track_artists (
			track_id  VARCHAR NOT NULL,
			artist_id VARCHAR NOT NULL,
			position  INTEGER NOT NULL,
			PRIMARY KEY (track_id, artist_id)
		)`,
		`CREATE TABLE IF NOT EXISTS enrichment (
			album_id     VARCHAR PRIMARY KEY,
			rating       DOUBLE NOT NULL,
			rating_count INTEGER NOT NULL,
			updated_at   TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS enrichment_tags (
			album_id  VARCHAR NOT NULL,
			dimension VARCHAR NOT NULL,
			tag       VARCHAR NOT NULL,
			position  INTEGER NOT NULL,
			PRIMARY KEY (album_id, dimension, position)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
