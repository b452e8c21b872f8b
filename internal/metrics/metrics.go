// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package metrics exposes Prometheus collectors for the enrichment pipeline
// and the scorer. All collectors are package-level and registered via
// promauto; the control API serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueState reflects the queue state machine: 0=idle, 1=running, 2=paused.
	QueueState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cratedig_queue_state",
			Help: "Enrichment queue state (0=idle, 1=running, 2=paused)",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cratedig_queue_depth",
			Help: "Number of pending enrichment jobs",
		},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratedig_jobs_processed_total",
			Help: "Enrichment jobs processed, by outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "skipped"
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cratedig_fetch_duration_seconds",
			Help:    "Duration of metadata fetches against the external catalog",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratedig_fetch_errors_total",
			Help: "Metadata fetch errors, by kind",
		},
		[]string{"kind"}, // "not_found", "parse", "blocked", "timeout", "other"
	)

	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cratedig_fetch_breaker_state",
			Help: "Scrape client circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	ScoringRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cratedig_scoring_runs_total",
			Help: "Recommendation scoring runs completed",
		},
	)

	ScoringCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratedig_scoring_candidates_total",
			Help: "Chart candidates seen by the scorer, by outcome",
		},
		[]string{"outcome"}, // "scored", "skipped"
	)

	LibraryTracksSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cratedig_library_tracks_synced_total",
			Help: "Tracks upserted by library sync",
		},
	)
)
