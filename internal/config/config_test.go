// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig().Validate() error = %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			want:   "Level",
		},
		{
			name:   "empty database path",
			mutate: func(c *Config) { c.Database.Path = "" },
			want:   "Path",
		},
		{
			name:   "page size over provider cap",
			mutate: func(c *Config) { c.Spotify.PageSize = 100 },
			want:   "PageSize",
		},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			want:   "Port",
		},
		{
			name:   "backoff under queue interval",
			mutate: func(c *Config) { c.Enrich.Backoff = time.Second },
			want:   "backoff",
		},
		{
			name:   "non-url scrape base",
			mutate: func(c *Config) { c.Scrape.BaseURL = "not a url" },
			want:   "BaseURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CRATEDIG_SPOTIFY_CLIENT_ID", "spotify.client_id"},
		{"CRATEDIG_ENRICH_FETCH_TIMEOUT", "enrich.fetch_timeout"},
		{"CRATEDIG_DATABASE_PATH", "database.path"},
		{"CRATEDIG_CHART_EXCLUDE_GENRES", "chart.exclude_genres"},
		{"CRATEDIG_SERVER_RATE_LIMIT_REQS", "server.rate_limit_reqs"},
		// Unknown section stays a flat key.
		{"CRATEDIG_SOMETHING_ELSE", "something_else"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLayersEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
logging:
  level: debug
enrich:
  interval: 7s
  backoff: 90s
chart:
  period: "2020s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CRATEDIG_CHART_PERIOD", "1990s")
	t.Setenv("CRATEDIG_CHART_EXCLUDE_GENRES", "hip-hop, pop")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// File beats defaults.
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from file", cfg.Logging.Level)
	}
	if cfg.Enrich.Interval != 7*time.Second {
		t.Errorf("Enrich.Interval = %v, want 7s from file", cfg.Enrich.Interval)
	}

	// Env beats file.
	if cfg.Chart.Period != "1990s" {
		t.Errorf("Chart.Period = %q, want env override", cfg.Chart.Period)
	}

	// Comma-separated env slice is split and trimmed.
	if len(cfg.Chart.ExcludeGenres) != 2 || cfg.Chart.ExcludeGenres[1] != "pop" {
		t.Errorf("Chart.ExcludeGenres = %v, want [hip-hop pop]", cfg.Chart.ExcludeGenres)
	}

	// Untouched keys keep defaults.
	if cfg.Server.Port != 3222 {
		t.Errorf("Server.Port = %d, want default 3222", cfg.Server.Port)
	}
	if cfg.Enrich.TTL != 24*time.Hour {
		t.Errorf("Enrich.TTL = %v, want default 24h", cfg.Enrich.TTL)
	}
}

func TestRequireSpotify(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.RequireSpotify(); err == nil {
		t.Error("RequireSpotify() = nil without credentials, want error")
	}

	cfg.Spotify.ClientID = "id"
	cfg.Spotify.ClientSecret = "secret"
	if err := cfg.RequireSpotify(); err != nil {
		t.Errorf("RequireSpotify() error = %v with credentials", err)
	}
}
