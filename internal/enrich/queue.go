// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cratedig/cratedig/internal/logging"
	"github.com/cratedig/cratedig/internal/metrics"
	"github.com/cratedig/cratedig/internal/models"
)

// State is the queue lifecycle state.
type State int

const (
	// StateIdle means no pending jobs; the worker is waiting for work.
	StateIdle State = iota
	// StateRunning means the worker is dequeuing on the rate-limit cadence.
	StateRunning
	// StatePaused means a failure halted the queue; an operator must resume.
	StatePaused
)

// String returns the state name for logs and the control API.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Job is one unit of enrichment work. Jobs carry their payload plus a
// queue-layer idempotency key per album, so two producers observing "no
// record yet" at the same time still yield one job.
type Job struct {
	ID         uuid.UUID `json:"id"`
	AlbumID    string    `json:"album_id"`
	AlbumName  string    `json:"album_name"`
	ArtistName string    `json:"artist_name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
}

// ExhaustPolicy selects what happens when a job's attempts are exhausted.
type ExhaustPolicy int

const (
	// ExhaustPause halts the whole queue. The failing job stays at the
	// front, unprocessed, until an operator resumes. Default, since a
	// failure against a scraping target usually means a block rather
	// than a transient fault.
	ExhaustPause ExhaustPolicy = iota
	// ExhaustDrop discards the failing job and keeps draining.
	ExhaustDrop
)

// RetryPolicy is the queue's explicit retry contract.
type RetryPolicy struct {
	// MaxAttempts bounds tries per job. 1 means any failure is terminal
	// for the job and OnExhausted applies immediately.
	MaxAttempts int

	// Backoff is the fixed delay between attempts of one job.
	Backoff time.Duration

	// OnExhausted applies once MaxAttempts have failed.
	OnExhausted ExhaustPolicy
}

// DefaultRetryPolicy is one attempt, pause the queue on its failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff:     60 * time.Second,
		OnExhausted: ExhaustPause,
	}
}

// Fetcher is the metadata fetcher boundary the worker calls. Implementations
// must be idempotent-safe to retry.
type Fetcher interface {
	// FetchAlbum returns the enrichment metadata for an album. AlbumID and
	// UpdatedAt on the result are ignored; the cache stamps both.
	FetchAlbum(ctx context.Context, albumName, artistName string) (*models.EnrichmentRecord, error)
}

// Queue is the admission-controlled enrichment work queue: FIFO, single
// consumer, one dequeue per interval, paused as a whole on failure. It is a
// long-lived process-wide resource with no terminal state.
type Queue struct {
	cache   *Cache
	fetcher Fetcher
	policy  RetryPolicy

	// interval spaces dequeues; fetchTimeout bounds one fetch attempt.
	interval     time.Duration
	fetchTimeout time.Duration

	mu      sync.Mutex
	state   State
	pending []*Job
	inQueue map[string]struct{} // album ids currently pending
	wake    chan struct{}

	log zerolog.Logger
}

// Options configures a Queue.
type Options struct {
	// Interval is the minimum spacing between dequeues. Default 5s.
	Interval time.Duration

	// FetchTimeout bounds a single fetch; expiry counts as fetch failure.
	// Default 2m.
	FetchTimeout time.Duration

	// Retry is the retry policy. Zero value selects DefaultRetryPolicy.
	Retry RetryPolicy
}

// NewQueue creates an idle queue draining into fetcher and writing through
// cache.
func NewQueue(cache *Cache, fetcher Fetcher, opts Options) *Queue {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 2 * time.Minute
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	q := &Queue{
		cache:        cache,
		fetcher:      fetcher,
		policy:       opts.Retry,
		interval:     opts.Interval,
		fetchTimeout: opts.FetchTimeout,
		state:        StateIdle,
		inQueue:      make(map[string]struct{}),
		wake:         make(chan struct{}, 1),
		log:          logging.With().Str("component", "enrich.queue").Logger(),
	}
	metrics.QueueState.Set(float64(StateIdle))
	return q
}

// Enqueue admits an album into the pending work set. The producer performs
// the record-existence check before calling; the queue only dedups against
// jobs already pending. Returns false when the album was already queued.
func (q *Queue) Enqueue(album *models.Album) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.inQueue[album.ID]; dup {
		return false
	}

	job := &Job{
		ID:         uuid.New(),
		AlbumID:    album.ID,
		AlbumName:  album.Name,
		ArtistName: album.PrimaryArtist(),
		EnqueuedAt: time.Now(),
	}
	q.pending = append(q.pending, job)
	q.inQueue[album.ID] = struct{}{}
	metrics.QueueDepth.Set(float64(len(q.pending)))

	q.log.Debug().Str("album", album.Name).Str("album_id", album.ID).Msg("Job enqueued")
	q.signal()
	return true
}

// State returns the current queue state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Pending returns a snapshot of the pending jobs in FIFO order.
func (q *Queue) Pending() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := make([]Job, len(q.pending))
	for i, j := range q.pending {
		jobs[i] = *j
	}
	return jobs
}

// Pause halts dequeuing until Resume. Pending jobs are retained.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.setStateLocked(StatePaused)
}

// Resume lifts a pause. The worker picks the cadence back up; the job at
// the front (the one that failed, if any) runs first.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != StatePaused {
		return
	}
	if len(q.pending) > 0 {
		q.setStateLocked(StateRunning)
	} else {
		q.setStateLocked(StateIdle)
	}
	q.signal()
}

// setStateLocked transitions the state machine and mirrors it to metrics.
// Callers hold q.mu.
func (q *Queue) setStateLocked(s State) {
	if q.state == s {
		return
	}
	q.log.Info().Str("from", q.state.String()).Str("to", s.String()).Msg("Queue state transition")
	q.state = s
	metrics.QueueState.Set(float64(s))
}

// signal wakes the worker without blocking. Callers hold q.mu.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
