// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for structural and cross-field errors.
// A failure here is fatal at startup; no command runs with a bad config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return err
	}

	// The queue's admission throttle must not outpace the per-job retry
	// backoff, otherwise a retried job re-fires before its delay elapses.
	if c.Enrich.Backoff < c.Enrich.Interval {
		return fmt.Errorf("enrich: backoff %s must be >= interval %s", c.Enrich.Backoff, c.Enrich.Interval)
	}

	return nil
}

// RequireSpotify verifies credentials needed by library sync. Commands that
// never touch the library provider skip this check.
func (c *Config) RequireSpotify() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return errors.New("spotify: client_id and client_secret are required (set CRATEDIG_SPOTIFY_CLIENT_ID / CRATEDIG_SPOTIFY_CLIENT_SECRET)")
	}
	return nil
}
