// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package library

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/cratedig/cratedig/internal/kv"
	"github.com/cratedig/cratedig/internal/logging"
)

// ErrNotAuthorized means no refresh token is stored. The initial interactive
// authorization happens outside Cratedig; its refresh token is seeded into
// the kv store.
var ErrNotAuthorized = errors.New("library: no refresh token stored; seed " + kv.KeySpotifyRefreshToken)

// tokenResponse is the provider's token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// accessToken returns a valid access token, refreshing through the token
// endpoint when the stored one is missing or expired. Refreshed tokens are
// persisted back to the kv store.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	token, err := c.kv.Get(kv.KeySpotifyAccessToken)
	if err == nil {
		expiry, expErr := c.kv.GetTime(kv.KeySpotifyTokenExpiry)
		if expErr == nil && time.Now().Before(expiry) {
			return token, nil
		}
	} else if !errors.Is(err, kv.ErrKeyNotFound) {
		return "", err
	}

	return c.refreshAccessToken(ctx)
}

// refreshAccessToken exchanges the stored refresh token for a new access
// token.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	refresh, err := c.kv.Get(kv.KeySpotifyRefreshToken)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", ErrNotAuthorized
	}
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.AuthURL, "/")+"/api/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("library: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("library: token refresh: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("library: token refresh: unexpected status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("library: decode token response: %w", err)
	}

	if err := c.kv.Set(kv.KeySpotifyAccessToken, tok.AccessToken); err != nil {
		return "", err
	}
	if tok.RefreshToken != "" {
		if err := c.kv.Set(kv.KeySpotifyRefreshToken, tok.RefreshToken); err != nil {
			return "", err
		}
	}
	expiry := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := c.kv.SetTime(kv.KeySpotifyTokenExpiry, expiry); err != nil {
		return "", err
	}

	logging.Debug().Time("expiry", expiry).Msg("Access token refreshed")
	return tok.AccessToken, nil
}
