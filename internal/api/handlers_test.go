// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/cratedig/cratedig/internal/config"
	"github.com/cratedig/cratedig/internal/database"
	"github.com/cratedig/cratedig/internal/enrich"
	"github.com/cratedig/cratedig/internal/models"
)

// nullStore is an empty enrich.Store double.
type nullStore struct{}

func (nullStore) GetEnrichment(context.Context, string) (*models.EnrichmentRecord, error) {
	return nil, database.ErrNotFound
}

func (nullStore) UpsertEnrichment(context.Context, *models.EnrichmentRecord) error {
	return nil
}

// nullFetcher never runs; queue consumption is not started in these tests.
type nullFetcher struct{}

func (nullFetcher) FetchAlbum(context.Context, string, string) (*models.EnrichmentRecord, error) {
	return &models.EnrichmentRecord{}, nil
}

func testServerConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            3222,
			Timeout:         10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
		},
	}
}

func testHandler() (*Handler, *enrich.Queue) {
	queue := enrich.NewQueue(enrich.NewCache(nullStore{}, 0), nullFetcher{}, enrich.Options{})
	return NewHandler(queue, nil, testServerConfig()), queue
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &resp
}

func TestQueueStatusEndpoint(t *testing.T) {
	handler, queue := testHandler()
	queue.Enqueue(&models.Album{ID: "a1", Name: "Pending Album", Artists: []models.Artist{{Name: "Artist"}}})

	router := handler.Routes()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "success" {
		t.Errorf("Status = %q", resp.Status)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Data = %T, want object", resp.Data)
	}
	if data["state"] != "idle" {
		t.Errorf("state = %v, want idle", data["state"])
	}
	if depth, _ := data["depth"].(float64); depth != 1 {
		t.Errorf("depth = %v, want 1", data["depth"])
	}
	pending, _ := data["pending"].([]interface{})
	if len(pending) != 1 {
		t.Fatalf("pending = %d entries, want 1", len(pending))
	}
	job, _ := pending[0].(map[string]interface{})
	if job["album_name"] != "Pending Album" {
		t.Errorf("pending job = %v", job)
	}
}

func TestQueuePauseResumeEndpoints(t *testing.T) {
	handler, queue := testHandler()
	queue.Enqueue(&models.Album{ID: "a1", Name: "Album", Artists: []models.Artist{{Name: "Artist"}}})
	router := handler.Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/queue/pause", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d, want 200", rec.Code)
	}
	if queue.State() != enrich.StatePaused {
		t.Errorf("queue state = %v after pause endpoint", queue.State())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/queue/resume", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d, want 200", rec.Code)
	}
	if queue.State() == enrich.StatePaused {
		t.Error("queue still paused after resume endpoint")
	}

	resp := decodeResponse(t, rec)
	data, _ := resp.Data.(map[string]interface{})
	if data["state"] != "running" {
		t.Errorf("resume response state = %v, want running (job pending)", data["state"])
	}
}

func TestQueueEndpointsMethodRestrictions(t *testing.T) {
	handler, _ := testHandler()
	router := handler.Routes()

	// Pausing is a POST; a GET must not flip queue state.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/pause", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET pause status = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler, _ := testHandler()
	router := handler.Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body empty")
	}
}
