// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package recommend

import (
	"sort"
	"time"

	"github.com/cratedig/cratedig/internal/logging"
	"github.com/cratedig/cratedig/internal/metrics"
	"github.com/cratedig/cratedig/internal/models"
)

// Scorer computes weighted percentile scores for chart candidates against
// one frozen History.
type Scorer struct {
	history *History
	weights Weights

	// topK bounds the emitted ranking.
	topK int
}

// NewScorer creates a scorer. topK <= 0 keeps every candidate.
func NewScorer(history *History, weights Weights, topK int) *Scorer {
	return &Scorer{history: history, weights: weights, topK: topK}
}

// Score ranks candidates descending by composite percentile. Ties keep
// input order (stable sort). Malformed candidates are skipped and reported,
// never aborting the batch.
func (s *Scorer) Score(candidates []models.ChartCandidate) *Result {
	result := &Result{
		GeneratedAt: time.Now(),
		HistorySize: len(s.history.Ratings),
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Name == "" && len(c.ArtistNames) == 0 {
			result.Skipped = append(result.Skipped, SkippedCandidate{
				Name:   c.Name,
				Rank:   c.Rank,
				Reason: "no recognizable name or artists",
			})
			metrics.ScoringCandidates.WithLabelValues("skipped").Inc()
			continue
		}
		scored = append(scored, s.scoreOne(c))
		metrics.ScoringCandidates.WithLabelValues("scored").Inc()
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Composite > scored[j].Composite
	})
	if s.topK > 0 && len(scored) > s.topK {
		scored = scored[:s.topK]
	}
	result.Recommendations = scored

	metrics.ScoringRuns.Inc()
	logging.Info().
		Int("candidates", len(candidates)).
		Int("ranked", len(scored)).
		Int("skipped", len(result.Skipped)).
		Msg("Scoring run complete")
	return result
}

// scoreOne computes all component percentiles and the composite for one
// candidate.
func (s *Scorer) scoreOne(c models.ChartCandidate) ScoredCandidate {
	comp := ComponentScores{
		Rating:      rankPercentile(c.Rating, s.history.Ratings),
		RatingCount: rankPercentile(float64(c.RatingCount), s.history.RatingCounts),
	}
	comp.PrimaryGenre = dimensionScore(c.PrimaryGenres, s.history.PrimaryGenres)
	comp.SecondaryGenre = dimensionScore(c.SecondaryGenres, s.history.SecondaryGenres)

	// Cross-genre: primary tags against the secondary distribution and
	// vice versa, capturing stylistic adjacency.
	comp.PrimaryCrossGenre = dimensionScore(c.PrimaryGenres, s.history.SecondaryGenres)
	comp.SecondaryCrossGenre = dimensionScore(c.SecondaryGenres, s.history.PrimaryGenres)

	comp.Descriptor = dimensionScore(c.Descriptors, s.history.Descriptors)

	return ScoredCandidate{
		Candidate:  c,
		Components: comp,
		Composite:  s.composite(comp),
	}
}

// composite is the weighted mean of the component percentiles. Dimensions
// the candidate carried no tags for contribute neither value nor weight;
// the remaining weights renormalize. A constant input therefore always
// yields itself, whatever the weight distribution.
func (s *Scorer) composite(comp ComponentScores) float64 {
	sum := comp.Rating * float64(s.weights.Rating)
	weight := s.weights.Rating
	sum += comp.RatingCount * float64(s.weights.RatingCount)
	weight += s.weights.RatingCount

	for _, part := range []struct {
		score *float64
		w     int
	}{
		{comp.PrimaryGenre, s.weights.PrimaryGenre},
		{comp.SecondaryGenre, s.weights.SecondaryGenre},
		{comp.PrimaryCrossGenre, s.weights.PrimaryCrossGenre},
		{comp.SecondaryCrossGenre, s.weights.SecondaryCrossGenre},
		{comp.Descriptor, s.weights.Descriptor},
	} {
		if part.score == nil {
			continue
		}
		sum += *part.score * float64(part.w)
		weight += part.w
	}

	if weight == 0 {
		return 0
	}
	return sum / float64(weight)
}

// rankPercentile inserts value into the ascending-sorted history and
// returns (index+1)/(N+1), where N is the sample size before insertion.
// Ties resolve to the first occurrence, matching a stable ascending
// insert.
func rankPercentile(value float64, sorted []float64) float64 {
	idx := sort.SearchFloat64s(sorted, value)
	return float64(idx+1) / float64(len(sorted)+1)
}

// tagPercentile returns (index+1)/table-size for the tag's position in the
// frequency table, or NoveltyPercentile when the tag is absent.
func tagPercentile(tag string, table []models.TagCount) float64 {
	for i, tc := range table {
		if tc.Tag == tag {
			return float64(i+1) / float64(len(table))
		}
	}
	return NoveltyPercentile
}

// dimensionScore is the arithmetic mean of the tag percentiles of one
// dimension, or nil when the candidate carries no tags in it.
func dimensionScore(tags []string, table []models.TagCount) *float64 {
	if len(tags) == 0 {
		return nil
	}
	var sum float64
	for _, tag := range tags {
		sum += tagPercentile(tag, table)
	}
	mean := sum / float64(len(tags))
	return &mean
}
