// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package models

import "testing"

func TestAlbumPrimaryArtist(t *testing.T) {
	album := Album{Artists: []Artist{{Name: "Lead"}, {Name: "Feature"}}}
	if got := album.PrimaryArtist(); got != "Lead" {
		t.Errorf("PrimaryArtist() = %q, want Lead", got)
	}

	var empty Album
	if got := empty.PrimaryArtist(); got != "" {
		t.Errorf("PrimaryArtist() = %q for no artists, want empty", got)
	}
}

func TestEnrichmentRecordTags(t *testing.T) {
	rec := &EnrichmentRecord{
		PrimaryGenres:   []string{"techno"},
		SecondaryGenres: []string{"dub"},
		Descriptors:     []string{"cold"},
	}

	tests := []struct {
		dim  TagDimension
		want string
	}{
		{DimensionPrimaryGenre, "techno"},
		{DimensionSecondaryGenre, "dub"},
		{DimensionDescriptor, "cold"},
	}
	for _, tt := range tests {
		got := rec.Tags(tt.dim)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("Tags(%s) = %v, want [%s]", tt.dim, got, tt.want)
		}
	}

	if got := rec.Tags(TagDimension("bogus")); got != nil {
		t.Errorf("Tags(bogus) = %v, want nil", got)
	}
}
