// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package models

// TagDimension names one categorical tag axis of an enrichment record.
type TagDimension string

const (
	DimensionPrimaryGenre   TagDimension = "primary_genre"
	DimensionSecondaryGenre TagDimension = "secondary_genre"
	DimensionDescriptor     TagDimension = "descriptor"
)

// Tags returns the record's tag list for the given dimension.
func (r *EnrichmentRecord) Tags(dim TagDimension) []string {
	switch dim {
	case DimensionPrimaryGenre:
		return r.PrimaryGenres
	case DimensionSecondaryGenre:
		return r.SecondaryGenres
	case DimensionDescriptor:
		return r.Descriptors
	default:
		return nil
	}
}
