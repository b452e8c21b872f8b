// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cratedig/cratedig/internal/models"
)

// scriptedFetcher fails for album names listed in failing and records the
// order of fetch calls.
type scriptedFetcher struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func newScriptedFetcher(failing ...string) *scriptedFetcher {
	f := &scriptedFetcher{failing: make(map[string]bool)}
	for _, name := range failing {
		f.failing[name] = true
	}
	return f
}

func (f *scriptedFetcher) FetchAlbum(_ context.Context, albumName, _ string) (*models.EnrichmentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, albumName)
	if f.failing[albumName] {
		return nil, errors.New("scripted failure")
	}
	return &models.EnrichmentRecord{Rating: 4.0, RatingCount: 10}, nil
}

func (f *scriptedFetcher) succeed(albumName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failing, albumName)
}

func (f *scriptedFetcher) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func album(id, name string) *models.Album {
	return &models.Album{
		ID:      id,
		Name:    name,
		Artists: []models.Artist{{ID: "artist-" + id, Name: "Artist"}},
	}
}

// testQueue builds a queue with millisecond pacing so tests drain quickly.
func testQueue(store *memStore, fetcher Fetcher) *Queue {
	return NewQueue(NewCache(store, DefaultTTL), fetcher, Options{
		Interval:     time.Millisecond,
		FetchTimeout: time.Second,
		Retry: RetryPolicy{
			MaxAttempts: 1,
			Backoff:     time.Millisecond,
			OnExhausted: ExhaustPause,
		},
	})
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestQueueEnqueueDedup(t *testing.T) {
	q := testQueue(newMemStore(), newScriptedFetcher())

	if !q.Enqueue(album("a1", "First")) {
		t.Fatal("first Enqueue() = false, want true")
	}
	if q.Enqueue(album("a1", "First")) {
		t.Error("duplicate Enqueue() = true, want false")
	}
	if got := len(q.Pending()); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
}

func TestQueueEnqueueIfMissing(t *testing.T) {
	store := newMemStore()
	store.records["a1"] = &models.EnrichmentRecord{AlbumID: "a1", UpdatedAt: time.Now()}
	q := testQueue(store, newScriptedFetcher())

	ok, err := q.EnqueueIfMissing(context.Background(), album("a1", "Known"))
	if err != nil {
		t.Fatalf("EnqueueIfMissing() error = %v", err)
	}
	if ok {
		t.Error("EnqueueIfMissing() admitted album with existing record")
	}

	ok, err = q.EnqueueIfMissing(context.Background(), album("a2", "Unknown"))
	if err != nil {
		t.Fatalf("EnqueueIfMissing() error = %v", err)
	}
	if !ok {
		t.Error("EnqueueIfMissing() refused album without record")
	}
}

func TestQueueDrainsFIFO(t *testing.T) {
	store := newMemStore()
	fetcher := newScriptedFetcher()
	q := testQueue(store, fetcher)

	q.Enqueue(album("a1", "First"))
	q.Enqueue(album("a2", "Second"))
	q.Enqueue(album("a3", "Third"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Serve(ctx)

	waitFor(t, "all records written", func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.records) == 3
	})

	want := []string{"First", "Second", "Third"}
	got := fetcher.callOrder()
	if len(got) != len(want) {
		t.Fatalf("fetch calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fetch calls = %v, want %v", got, want)
		}
	}

	waitFor(t, "queue idle", func() bool { return q.State() == StateIdle })
}

func TestQueuePausesOnFailure(t *testing.T) {
	store := newMemStore()
	fetcher := newScriptedFetcher("Second")
	q := testQueue(store, fetcher)

	q.Enqueue(album("a1", "First"))
	q.Enqueue(album("a2", "Second"))
	q.Enqueue(album("a3", "Third"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Serve(ctx)

	waitFor(t, "queue paused", func() bool { return q.State() == StatePaused })

	// The job before the failure completed; the failure and everything
	// after it did not.
	store.mu.Lock()
	_, first := store.records["a1"]
	_, second := store.records["a2"]
	_, third := store.records["a3"]
	store.mu.Unlock()
	if !first {
		t.Error("record for job before failure missing")
	}
	if second || third {
		t.Error("records written after failure, want none")
	}

	// The failed job is back at the front, ready for a resume.
	pending := q.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d jobs, want 2", len(pending))
	}
	if pending[0].AlbumID != "a2" || pending[1].AlbumID != "a3" {
		t.Errorf("pending order = [%s %s], want [a2 a3]", pending[0].AlbumID, pending[1].AlbumID)
	}

	// No dequeues happen while paused.
	calls := len(fetcher.callOrder())
	time.Sleep(20 * time.Millisecond)
	if got := len(fetcher.callOrder()); got != calls {
		t.Errorf("fetch calls advanced from %d to %d while paused", calls, got)
	}

	// Resume with the failure cleared drains the rest in order.
	fetcher.succeed("Second")
	q.Resume()

	waitFor(t, "remaining records written", func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.records) == 3
	})
	waitFor(t, "queue idle after drain", func() bool { return q.State() == StateIdle })
}

func TestQueuePauseBlocksConsumption(t *testing.T) {
	store := newMemStore()
	fetcher := newScriptedFetcher()
	q := testQueue(store, fetcher)

	q.Pause()
	q.Enqueue(album("a1", "First"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Serve(ctx)

	time.Sleep(20 * time.Millisecond)
	if got := len(fetcher.callOrder()); got != 0 {
		t.Fatalf("fetch calls = %d while paused, want 0", got)
	}

	q.Resume()
	waitFor(t, "record written after resume", func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.records) == 1
	})
}

func TestQueueRateLimitSpacing(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	store := newMemStore()
	fetcher := newScriptedFetcher()
	const interval = 50 * time.Millisecond
	q := NewQueue(NewCache(store, DefaultTTL), fetcher, Options{
		Interval:     interval,
		FetchTimeout: time.Second,
	})

	for i, name := range []string{"First", "Second", "Third"} {
		q.Enqueue(album(string(rune('a'+i)), name))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	go q.Serve(ctx)

	waitFor(t, "all records written", func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.records) == 3
	})

	// Burst 1: the first job is immediate, the remaining two each wait a
	// full interval.
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("drained 3 jobs in %v, want at least %v", elapsed, 2*interval)
	}
}

func TestQueueExhaustDrop(t *testing.T) {
	store := newMemStore()
	fetcher := newScriptedFetcher("Bad")
	q := NewQueue(NewCache(store, DefaultTTL), fetcher, Options{
		Interval:     time.Millisecond,
		FetchTimeout: time.Second,
		Retry: RetryPolicy{
			MaxAttempts: 2,
			Backoff:     time.Millisecond,
			OnExhausted: ExhaustDrop,
		},
	})

	q.Enqueue(album("a1", "Bad"))
	q.Enqueue(album("a2", "Good"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Serve(ctx)

	waitFor(t, "good record written", func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		_, ok := store.records["a2"]
		return ok
	})

	if q.State() == StatePaused {
		t.Error("queue paused under ExhaustDrop, want drain to continue")
	}

	// Two attempts for the bad job, then the good one.
	calls := fetcher.callOrder()
	bad := 0
	for _, name := range calls {
		if name == "Bad" {
			bad++
		}
	}
	if bad != 2 {
		t.Errorf("attempts for dropped job = %d, want 2", bad)
	}

	// The dropped album can be enqueued again.
	if !q.Enqueue(album("a1", "Bad")) {
		t.Error("Enqueue() after drop = false, want idempotency key released")
	}
}

func TestQueueStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateRunning, "running"},
		{StatePaused, "paused"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
