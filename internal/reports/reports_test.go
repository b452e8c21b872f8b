// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package reports

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/cratedig/cratedig/internal/models"
)

// stubSource feeds fixed descriptor data.
type stubSource struct {
	lists  [][]string
	counts []models.TagCount
}

func (s stubSource) DescriptorsForPrimaryGenre(_ context.Context, genre string) ([][]string, error) {
	return s.lists, nil
}

func (s stubSource) DescriptorCountsForPrimaryGenre(_ context.Context, genre string) ([]models.TagCount, error) {
	return s.counts, nil
}

func TestMostCommonPairs(t *testing.T) {
	src := stubSource{lists: [][]string{
		{"cold", "hypnotic"},
		{"cold", "hypnotic", "dark"},
		{"warm"},
	}}

	table, err := MostCommonPairs(context.Background(), src, "techno")
	if err != nil {
		t.Fatalf("MostCommonPairs() error = %v", err)
	}

	if got := table["cold"]["hypnotic"]; got != 2 {
		t.Errorf("cold/hypnotic = %d, want 2", got)
	}
	if got := table["hypnotic"]["cold"]; got != 2 {
		t.Errorf("hypnotic/cold = %d, want symmetric 2", got)
	}
	if got := table["cold"]["dark"]; got != 1 {
		t.Errorf("cold/dark = %d, want 1", got)
	}
	// No self pairs.
	if _, ok := table["cold"]["cold"]; ok {
		t.Error("self pair recorded")
	}
	// A lone descriptor appears with no partners.
	if len(table["warm"]) != 0 {
		t.Errorf("warm pairs = %v, want none", table["warm"])
	}
}

func TestMostCommonPairsRequiresGenre(t *testing.T) {
	_, err := MostCommonPairs(context.Background(), stubSource{}, "")
	if !errors.Is(err, ErrNoGenre) {
		t.Errorf("error = %v, want ErrNoGenre", err)
	}
}

func TestSaveAppendsExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")

	if err := Save(map[string]int{"a": 1}, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path + ".json")
	if err != nil {
		t.Fatalf("report file: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report not valid JSON: %v", err)
	}
	if decoded["a"] != 1 {
		t.Errorf("decoded = %v", decoded)
	}
}
