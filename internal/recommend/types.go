// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package recommend ranks chart candidates against the statistical
// distribution of the user's own enriched library. Scoring is a pure batch
// computation: history in, ranked report out, nothing persisted.
package recommend

import (
	"context"
	"time"

	"github.com/cratedig/cratedig/internal/models"
)

// NoveltyPercentile is assigned to a tag never seen in the user's history:
// deliberately middle-low, "unknown, slightly penalized" rather than 0
// (unfairly punished) or 1 (unfairly rewarded).
const NoveltyPercentile = 0.25

// Weights are the integer repetition counts of each component in the
// composite mean. Descriptors dominate: fine-grained taste signals are the
// strongest predictor.
type Weights struct {
	Rating              int `json:"rating"`
	RatingCount         int `json:"rating_count"`
	PrimaryGenre        int `json:"primary_genre"`
	SecondaryGenre      int `json:"secondary_genre"`
	PrimaryCrossGenre   int `json:"primary_cross_genre"`
	SecondaryCrossGenre int `json:"secondary_cross_genre"`
	Descriptor          int `json:"descriptor"`
}

// DefaultWeights returns the reference weighting (215 total weight units).
func DefaultWeights() Weights {
	return Weights{
		Rating:              10,
		RatingCount:         5,
		PrimaryGenre:        45,
		SecondaryGenre:      30,
		PrimaryCrossGenre:   20,
		SecondaryCrossGenre: 15,
		Descriptor:          90,
	}
}

// ComponentScores are the per-dimension percentiles of one candidate.
// A nil pointer marks a dimension the candidate carried no tags for; such
// dimensions are excluded from the composite rather than scored as zero.
type ComponentScores struct {
	Rating              float64  `json:"rating_percentile"`
	RatingCount         float64  `json:"rating_count_percentile"`
	PrimaryGenre        *float64 `json:"primary_genre_percentile"`
	SecondaryGenre      *float64 `json:"secondary_genre_percentile"`
	PrimaryCrossGenre   *float64 `json:"primary_cross_genre_percentile"`
	SecondaryCrossGenre *float64 `json:"secondary_cross_genre_percentile"`
	Descriptor          *float64 `json:"descriptor_percentile"`
}

// ScoredCandidate pairs a chart candidate with its percentile scores and
// weighted composite.
type ScoredCandidate struct {
	Candidate  models.ChartCandidate `json:"candidate"`
	Components ComponentScores       `json:"components"`
	Composite  float64               `json:"composite_percentile"`
}

// SkippedCandidate records a candidate dropped from a scoring run, so a
// run reports an explicit skip list instead of a silent undercount.
type SkippedCandidate struct {
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Reason string `json:"reason"`
}

// Result is one scoring run's output.
type Result struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	HistorySize     int               `json:"history_size"`
	Recommendations []ScoredCandidate `json:"recommendations"`
	Skipped         []SkippedCandidate `json:"skipped,omitempty"`
}

// History is the frozen distribution of the user's enriched library used
// for one scoring run. Tables are rebuilt fresh each run; there is no
// incremental maintenance.
type History struct {
	// Ratings and RatingCounts are ascending-sorted.
	Ratings      []float64
	RatingCounts []float64

	// Frequency tables per tag dimension, ascending by occurrence count.
	PrimaryGenres   []models.TagCount
	SecondaryGenres []models.TagCount
	Descriptors     []models.TagCount
}

// HistoryProvider is the slice of the catalog store the scorer reads.
type HistoryProvider interface {
	SortedRatings(ctx context.Context) ([]float64, error)
	SortedRatingCounts(ctx context.Context) ([]float64, error)
	TagFrequencies(ctx context.Context, dim models.TagDimension) ([]models.TagCount, error)
}

// LoadHistory pulls the full enrichment history from the store.
func LoadHistory(ctx context.Context, p HistoryProvider) (*History, error) {
	ratings, err := p.SortedRatings(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := p.SortedRatingCounts(ctx)
	if err != nil {
		return nil, err
	}
	primary, err := p.TagFrequencies(ctx, models.DimensionPrimaryGenre)
	if err != nil {
		return nil, err
	}
	secondary, err := p.TagFrequencies(ctx, models.DimensionSecondaryGenre)
	if err != nil {
		return nil, err
	}
	descriptors, err := p.TagFrequencies(ctx, models.DimensionDescriptor)
	if err != nil {
		return nil, err
	}

	return &History{
		Ratings:         ratings,
		RatingCounts:    counts,
		PrimaryGenres:   primary,
		SecondaryGenres: secondary,
		Descriptors:     descriptors,
	}, nil
}

// Size is the number of enriched albums backing the rating table.
func (h *History) Size() int {
	return len(h.Ratings)
}
