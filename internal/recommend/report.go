// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package recommend

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// SaveReport writes a scoring result as an indented JSON artifact. A
// ".json" suffix is appended when the caller's name lacks one.
func SaveReport(result *Result, path string) error {
	if !strings.HasSuffix(path, ".json") {
		path += ".json"
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("recommend: marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("recommend: write report %s: %w", path, err)
	}
	return nil
}
