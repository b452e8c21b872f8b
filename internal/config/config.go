// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package config loads and validates Cratedig configuration via Koanf v2
// with layered sources (highest priority wins): environment variables,
// YAML config file, built-in defaults.
package config

import (
	"time"
)

// Config is the root configuration for all Cratedig commands.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	KV        KVConfig        `koanf:"kv"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Scrape    ScrapeConfig    `koanf:"scrape"`
	Enrich    EnrichConfig    `koanf:"enrich"`
	Chart     ChartConfig     `koanf:"chart"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
}

// LoggingConfig controls the global zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"  validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig configures the DuckDB catalog store.
type DatabaseConfig struct {
	// Path is the database file location. ":memory:" is accepted for tests.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory caps DuckDB memory usage, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads sets DuckDB worker threads. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`
}

// KVConfig configures the BadgerDB scalar key-value store.
type KVConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path" validate:"required"`
}

// SpotifyConfig configures library sync against the Spotify Web API.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// BaseURL is overridable for tests.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	// AuthURL is the token endpoint base, overridable for tests.
	AuthURL string `koanf:"auth_url" validate:"omitempty,url"`

	// PageSize is the saved-tracks page size (Spotify caps this at 50).
	PageSize int `koanf:"page_size" validate:"gte=1,lte=50"`

	// MaxTracks bounds a full library sync.
	MaxTracks int `koanf:"max_tracks" validate:"gte=1"`

	// Timeout applies to each API request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// ScrapeConfig configures the headless-browser metadata fetcher.
type ScrapeConfig struct {
	// BaseURL is the community catalog root.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Headless runs Chrome without a display. Disable when debugging blocks.
	Headless bool `koanf:"headless"`

	// NavTimeout bounds a single page navigation.
	NavTimeout time.Duration `koanf:"nav_timeout" validate:"gt=0"`

	// BrowserBin optionally pins the Chrome binary path.
	BrowserBin string `koanf:"browser_bin"`
}

// EnrichConfig configures the enrichment job queue.
type EnrichConfig struct {
	// Interval is the minimum spacing between dequeues. The external target
	// tolerates at most one request per ~5 seconds.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`

	// Backoff is the fixed delay between retry attempts for one job.
	Backoff time.Duration `koanf:"backoff" validate:"gt=0"`

	// MaxAttempts bounds attempts per job before OnExhausted applies.
	MaxAttempts int `koanf:"max_attempts" validate:"gte=1"`

	// FetchTimeout bounds a single metadata fetch. Expiry counts as a
	// fetch failure and pauses the queue.
	FetchTimeout time.Duration `koanf:"fetch_timeout" validate:"gt=0"`

	// TTL is the staleness window after which a cached record is eligible
	// for re-fetch.
	TTL time.Duration `koanf:"ttl" validate:"gt=0"`
}

// ChartConfig configures external chart retrieval for scoring runs.
type ChartConfig struct {
	// Period is the chart period path segment, e.g. "2024" or "2010s".
	Period string `koanf:"period" validate:"required"`

	// Pages is how many chart pages to walk.
	Pages int `koanf:"pages" validate:"gte=1,lte=25"`

	// ExcludeGenres filters the chart server-side, e.g. ["hip-hop"].
	ExcludeGenres []string `koanf:"exclude_genres"`

	// PageDelay spaces successive chart page fetches.
	PageDelay time.Duration `koanf:"page_delay" validate:"gte=0"`
}

// RecommendConfig configures the recommendation scorer.
type RecommendConfig struct {
	// TopK is how many ranked candidates the report keeps.
	TopK int `koanf:"top_k" validate:"gte=1"`
}

// ServerConfig configures the queue control API.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// CORSOrigins lists allowed dashboard origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs / RateLimitWindow throttle the control API.
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/cratedig.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		KV: KVConfig{
			Path: "/data/kv",
		},
		Spotify: SpotifyConfig{
			BaseURL:   "https://api.spotify.com/v1",
			AuthURL:   "https://accounts.spotify.com",
			PageSize:  50,
			MaxTracks: 2000,
			Timeout:   30 * time.Second,
		},
		Scrape: ScrapeConfig{
			BaseURL:    "https://www.rateyourmusic.com",
			Headless:   true,
			NavTimeout: 30 * time.Second,
		},
		Enrich: EnrichConfig{
			Interval:     5 * time.Second,
			Backoff:      60 * time.Second,
			MaxAttempts:  1,
			FetchTimeout: 2 * time.Minute,
			TTL:          24 * time.Hour,
		},
		Chart: ChartConfig{
			Period:    "2010s",
			Pages:     10,
			PageDelay: 2 * time.Second,
		},
		Recommend: RecommendConfig{
			TopK: 10,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3222,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}
