// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package api exposes the enrichment queue control surface over HTTP:
// queue inspection, pause/resume, health, and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/cratedig/cratedig/internal/config"
	"github.com/cratedig/cratedig/internal/database"
	"github.com/cratedig/cratedig/internal/enrich"
	"github.com/cratedig/cratedig/internal/models"
)

// Handler carries the dependencies shared by all endpoint methods.
type Handler struct {
	queue     *enrich.Queue
	db        *database.DB
	config    *config.Config
	startTime time.Time
}

// NewHandler creates an API handler over the queue and database.
func NewHandler(queue *enrich.Queue, db *database.DB, cfg *config.Config) *Handler {
	return &Handler{
		queue:     queue,
		db:        db,
		config:    cfg,
		startTime: time.Now(),
	}
}

// queueJob is the wire form of a pending enrichment job.
type queueJob struct {
	ID         string    `json:"id"`
	AlbumID    string    `json:"album_id"`
	AlbumName  string    `json:"album_name"`
	ArtistName string    `json:"artist_name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
}

type queueStatus struct {
	State   string     `json:"state"`
	Depth   int        `json:"depth"`
	Pending []queueJob `json:"pending"`
}

// QueueStatus reports the queue state and a snapshot of pending jobs.
func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	pending := h.queue.Pending()
	jobs := make([]queueJob, 0, len(pending))
	for _, j := range pending {
		jobs = append(jobs, queueJob{
			ID:         j.ID.String(),
			AlbumID:    j.AlbumID,
			AlbumName:  j.AlbumName,
			ArtistName: j.ArtistName,
			EnqueuedAt: j.EnqueuedAt,
			Attempts:   j.Attempts,
		})
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: queueStatus{
			State:   h.queue.State().String(),
			Depth:   len(jobs),
			Pending: jobs,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// QueuePause stops job consumption until an explicit resume.
func (h *Handler) QueuePause(w http.ResponseWriter, r *http.Request) {
	h.queue.Pause()
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"state": h.queue.State().String()},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// QueueResume restarts consumption after a pause.
func (h *Handler) QueueResume(w http.ResponseWriter, r *http.Request) {
	h.queue.Resume()
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"state": h.queue.State().String()},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

type healthStatus struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	QueueState    string  `json:"queue_state"`
	Albums        int     `json:"albums"`
	Enriched      int     `json:"enriched"`
}

// Health reports liveness plus basic catalog counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	albums, err := h.db.CountAlbums(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_ERROR", "database unavailable", err)
		return
	}
	enriched, err := h.db.CountEnrichment(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_ERROR", "database unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: healthStatus{
			Status:        "healthy",
			UptimeSeconds: time.Since(h.startTime).Seconds(),
			QueueState:    h.queue.State().String(),
			Albums:        albums,
			Enriched:      enriched,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
