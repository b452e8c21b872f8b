// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package reports produces small JSON analyses over the enrichment history:
// descriptor co-occurrence within a genre and descriptor frequency per
// genre. Like scoring, reports are computed fresh each run and written to
// file artifacts.
package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/cratedig/cratedig/internal/models"
)

// ErrNoGenre is returned when a report requiring a genre gets none.
var ErrNoGenre = errors.New("reports: no genre specified")

// DescriptorSource is the slice of the catalog store the reports read.
// Satisfied by *database.DB.
type DescriptorSource interface {
	DescriptorsForPrimaryGenre(ctx context.Context, genre string) ([][]string, error)
	DescriptorCountsForPrimaryGenre(ctx context.Context, genre string) ([]models.TagCount, error)
}

// PairTable maps a descriptor to the counts of descriptors it co-occurs
// with on the same album.
type PairTable map[string]map[string]int

// MostCommonPairs builds the descriptor co-occurrence table across albums
// whose primary genres include genre.
func MostCommonPairs(ctx context.Context, src DescriptorSource, genre string) (PairTable, error) {
	if genre == "" {
		return nil, ErrNoGenre
	}

	lists, err := src.DescriptorsForPrimaryGenre(ctx, genre)
	if err != nil {
		return nil, err
	}

	table := make(PairTable)
	for _, descriptors := range lists {
		for _, d := range descriptors {
			if table[d] == nil {
				table[d] = make(map[string]int)
			}
			for _, other := range descriptors {
				if d != other {
					table[d][other]++
				}
			}
		}
	}
	return table, nil
}

// DescriptorsByGenre returns descriptor frequencies across albums whose
// primary genres include genre, most common first.
func DescriptorsByGenre(ctx context.Context, src DescriptorSource, genre string) ([]models.TagCount, error) {
	if genre == "" {
		return nil, ErrNoGenre
	}
	return src.DescriptorCountsForPrimaryGenre(ctx, genre)
}

// Save writes any report value as an indented JSON artifact.
func Save(v any, path string) error {
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("reports: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("reports: write %s: %w", path, err)
	}
	return nil
}
