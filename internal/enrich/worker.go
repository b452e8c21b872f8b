// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package enrich

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/cratedig/cratedig/internal/metrics"
)

// Serve runs the single consumer loop until ctx is canceled. It implements
// suture.Service so the queue can live under the process supervisor.
//
// The loop dequeues at most one job per interval. The limiter is an
// admission throttle, not a parallelism control: there is never more than
// one fetch in flight, and no two fetches start closer than the interval.
func (q *Queue) Serve(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(q.interval), 1)

	for {
		if err := q.awaitWork(ctx); err != nil {
			return err
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		job := q.dequeue()
		if job == nil {
			// Paused or drained between wake-up and dequeue.
			continue
		}

		q.process(ctx, job)
	}
}

// awaitWork blocks until the queue is running-eligible: not paused and at
// least one job pending.
func (q *Queue) awaitWork(ctx context.Context) error {
	for {
		q.mu.Lock()
		ready := q.state != StatePaused && len(q.pending) > 0
		if ready {
			q.setStateLocked(StateRunning)
		} else if q.state != StatePaused {
			q.setStateLocked(StateIdle)
		}
		q.mu.Unlock()

		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

// dequeue pops the front job, or nil when paused or empty. The album stays
// in the idempotency set until the job completes or is dropped, so a
// concurrent Enqueue for the same album is still refused mid-flight.
func (q *Queue) dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state == StatePaused || len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	metrics.QueueDepth.Set(float64(len(q.pending)))
	return job
}

// process runs one job through the fetcher with the retry policy. Success
// writes through the cache; exhausted failure applies OnExhausted.
func (q *Queue) process(ctx context.Context, job *Job) {
	for {
		job.Attempts++

		err := q.fetchOnce(ctx, job)
		if err == nil {
			q.complete(job)
			return
		}

		q.log.Error().Err(err).
			Str("album", job.AlbumName).
			Int("attempt", job.Attempts).
			Msg("Enrichment fetch failed")

		if job.Attempts >= q.policy.MaxAttempts {
			q.exhausted(job)
			return
		}

		select {
		case <-ctx.Done():
			q.requeueFront(job)
			return
		case <-time.After(q.policy.Backoff):
		}
	}
}

// fetchOnce performs a single bounded fetch and cache write.
func (q *Queue) fetchOnce(ctx context.Context, job *Job) error {
	fetchCtx, cancel := context.WithTimeout(ctx, q.fetchTimeout)
	defer cancel()

	start := time.Now()
	rec, err := q.fetcher.FetchAlbum(fetchCtx, job.AlbumName, job.ArtistName)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	return q.cache.WriteThrough(ctx, job.AlbumID, rec)
}

// complete marks a job done and releases its idempotency key.
func (q *Queue) complete(job *Job) {
	q.mu.Lock()
	delete(q.inQueue, job.AlbumID)
	q.mu.Unlock()

	metrics.JobsProcessed.WithLabelValues("completed").Inc()
	q.log.Info().Str("album", job.AlbumName).Msg("Enrichment record saved")
}

// exhausted applies the retry policy's terminal action.
func (q *Queue) exhausted(job *Job) {
	metrics.JobsProcessed.WithLabelValues("failed").Inc()

	switch q.policy.OnExhausted {
	case ExhaustDrop:
		q.mu.Lock()
		delete(q.inQueue, job.AlbumID)
		q.mu.Unlock()
		q.log.Warn().Str("album", job.AlbumName).Msg("Job dropped after exhausted retries")
	case ExhaustPause:
		q.requeueFront(job)
		q.Pause()
		q.log.Warn().Str("album", job.AlbumName).Msg("Stopping processing; queue paused until resumed")
	}
}

// requeueFront puts a job back at the head of the pending list so it runs
// first after a resume.
func (q *Queue) requeueFront(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append([]*Job{job}, q.pending...)
	metrics.QueueDepth.Set(float64(len(q.pending)))
}
