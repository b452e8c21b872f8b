// Cratedig - Music Library Enrichment and Chart Recommendations
// Copyright 2026 Cratedig contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cratedig/cratedig

// Package main is the cratedig entry point.
//
// Cratedig keeps a local catalog of a Spotify library, enriches each album
// with community ratings and genre tags scraped from a music catalog site,
// and scores albums charts against the listening history to recommend new
// records.
//
// Subcommands:
//
//	sync       Pull the Spotify library into the catalog, enqueue albums
//	           without enrichment, and drain the queue.
//	worker     Enqueue cataloged albums without enrichment and drain the
//	           queue without touching Spotify.
//	serve      Long-running mode: supervised queue worker plus the control
//	           API (queue inspection, pause/resume, health, metrics).
//	recommend  Fetch chart pages, score candidates against the enrichment
//	           history, and write a JSON report.
//	backfill   Refresh stale or missing enrichment synchronously, bypassing
//	           the queue, with a fixed wait between fetches.
//	report     Descriptor analyses over the enrichment history.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): CRATEDIG_* environment variables, config.yaml, built-in
// defaults.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cratedig/cratedig/internal/api"
	"github.com/cratedig/cratedig/internal/config"
	"github.com/cratedig/cratedig/internal/database"
	"github.com/cratedig/cratedig/internal/enrich"
	"github.com/cratedig/cratedig/internal/kv"
	"github.com/cratedig/cratedig/internal/library"
	"github.com/cratedig/cratedig/internal/logging"
	"github.com/cratedig/cratedig/internal/models"
	"github.com/cratedig/cratedig/internal/recommend"
	"github.com/cratedig/cratedig/internal/reports"
	"github.com/cratedig/cratedig/internal/scrape"
	"github.com/cratedig/cratedig/internal/supervisor"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "sync":
		err = runSync(ctx, cfg)
	case "worker":
		err = runWorker(ctx, cfg)
	case "serve":
		err = runServe(ctx, cfg)
	case "recommend":
		err = runRecommend(ctx, cfg, args)
	case "backfill":
		err = runBackfill(ctx, cfg)
	case "report":
		err = runReport(ctx, cfg, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logging.Fatal().Err(err).Str("command", command).Msg("Command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cratedig <sync|worker|serve|recommend|backfill|report> [flags]")
}

// runSync pulls the Spotify library into the catalog, enqueues albums with
// no enrichment record, and drains the queue in-process.
func runSync(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireSpotify(); err != nil {
		return err
	}

	db, kvStore, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores(db, kvStore)

	client := library.NewClient(&cfg.Spotify, kvStore, db)
	albums, err := client.Sync(ctx)
	if err != nil {
		return fmt.Errorf("library sync: %w", err)
	}
	logging.Info().Int("albums", len(albums)).Msg("Library sync complete")

	return enqueueAndDrain(ctx, cfg, db, albums)
}

// runWorker enqueues cataloged albums with no enrichment record and drains
// the queue. Spotify is not contacted.
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, kvStore, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores(db, kvStore)

	albums, err := db.ListAlbums(ctx)
	if err != nil {
		return fmt.Errorf("list albums: %w", err)
	}
	return enqueueAndDrain(ctx, cfg, db, albums)
}

// enqueueAndDrain runs the admission check over albums, then serves the
// queue until it drains. A paused queue cannot make progress here since
// resume requires the control API, so pause ends the run with an error.
func enqueueAndDrain(ctx context.Context, cfg *config.Config, db *database.DB, albums []models.Album) error {
	scraper, err := scrape.NewClient(&cfg.Scrape)
	if err != nil {
		return fmt.Errorf("scrape client: %w", err)
	}
	defer scraper.Close()

	queue := newQueue(cfg, db, scraper)

	enqueued := 0
	for i := range albums {
		ok, err := queue.EnqueueIfMissing(ctx, &albums[i])
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", albums[i].Name, err)
		}
		if ok {
			enqueued++
		}
	}
	logging.Info().Int("enqueued", enqueued).Int("albums", len(albums)).Msg("Enrichment jobs enqueued")
	if enqueued == 0 {
		return nil
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- queue.Serve(serveCtx)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			switch {
			case queue.State() == enrich.StatePaused:
				cancel()
				<-done
				return errors.New("queue paused on failure; resume via serve mode or re-run")
			case queue.State() == enrich.StateIdle && len(queue.Pending()) == 0:
				cancel()
				<-done
				logging.Info().Msg("Queue drained")
				return nil
			}
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return ctx.Err()
		}
	}
}

// runServe is the long-running mode: a supervisor tree holding the queue
// worker and the control API. Albums without enrichment are enqueued at
// startup; a paused queue waits for a resume over the API.
func runServe(ctx context.Context, cfg *config.Config) error {
	db, kvStore, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores(db, kvStore)

	scraper, err := scrape.NewClient(&cfg.Scrape)
	if err != nil {
		return fmt.Errorf("scrape client: %w", err)
	}
	defer scraper.Close()

	queue := newQueue(cfg, db, scraper)

	albums, err := db.ListAlbums(ctx)
	if err != nil {
		return fmt.Errorf("list albums: %w", err)
	}
	enqueued := 0
	for i := range albums {
		ok, err := queue.EnqueueIfMissing(ctx, &albums[i])
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", albums[i].Name, err)
		}
		if ok {
			enqueued++
		}
	}
	logging.Info().Int("enqueued", enqueued).Msg("Startup enrichment jobs enqueued")

	handler := api.NewHandler(queue, db, cfg)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	slogger := slog.New(logging.NewSlogHandler())
	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	tree.AddEnrichService(queue)
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped")
	return nil
}

// runRecommend walks the configured chart pages, scores every candidate
// against the enrichment history, and writes the ranked report.
func runRecommend(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	out := fs.String("out", "chart-recommendations.json", "report output path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	history, err := recommend.LoadHistory(ctx, db)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if history.Size() == 0 {
		return errors.New("no enrichment history; run sync first")
	}

	scraper, err := scrape.NewClient(&cfg.Scrape)
	if err != nil {
		return fmt.Errorf("scrape client: %w", err)
	}
	defer scraper.Close()

	var candidates []models.ChartCandidate
	for page := 1; page <= cfg.Chart.Pages; page++ {
		if page > 1 {
			select {
			case <-time.After(cfg.Chart.PageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		items, err := scraper.FetchChart(ctx, cfg.Chart.Period, page, cfg.Chart.ExcludeGenres)
		if err != nil {
			return fmt.Errorf("chart page %d: %w", page, err)
		}
		logging.Info().Int("page", page).Int("items", len(items)).Msg("Chart page fetched")
		candidates = append(candidates, items...)
	}

	scorer := recommend.NewScorer(history, recommend.DefaultWeights(), cfg.Recommend.TopK)
	result := scorer.Score(candidates)

	if err := recommend.SaveReport(result, *out); err != nil {
		return err
	}
	logging.Info().
		Int("recommendations", len(result.Recommendations)).
		Int("skipped", len(result.Skipped)).
		Str("path", *out).
		Msg("Recommendation report written")
	return nil
}

// runBackfill refreshes stale or missing enrichment album by album,
// bypassing the queue, with the configured interval between fetches.
func runBackfill(ctx context.Context, cfg *config.Config) error {
	db, kvStore, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores(db, kvStore)

	scraper, err := scrape.NewClient(&cfg.Scrape)
	if err != nil {
		return fmt.Errorf("scrape client: %w", err)
	}
	defer scraper.Close()

	queue := newQueue(cfg, db, scraper)

	albums, err := db.ListAlbums(ctx)
	if err != nil {
		return fmt.Errorf("list albums: %w", err)
	}

	refreshed := 0
	for i := range albums {
		fetched, err := queue.RefreshSync(ctx, &albums[i])
		if err != nil {
			logging.Warn().Err(err).Str("album", albums[i].Name).Msg("Backfill fetch failed, continuing")
			continue
		}
		if !fetched {
			continue
		}
		refreshed++
		select {
		case <-time.After(cfg.Enrich.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	logging.Info().Int("refreshed", refreshed).Int("albums", len(albums)).Msg("Backfill complete")
	return nil
}

// runReport writes descriptor analyses over the enrichment history.
func runReport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	kind := fs.String("kind", "descriptors", "report kind: pairs or descriptors")
	genre := fs.String("genre", "", "primary genre to analyze")
	out := fs.String("out", "", "report output path (default <kind>-<genre>.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	path := *out
	if path == "" {
		path = fmt.Sprintf("%s-%s.json", *kind, *genre)
	}

	switch *kind {
	case "pairs":
		table, err := reports.MostCommonPairs(ctx, db, *genre)
		if err != nil {
			return err
		}
		if err := reports.Save(table, path); err != nil {
			return err
		}
	case "descriptors":
		counts, err := reports.DescriptorsByGenre(ctx, db, *genre)
		if err != nil {
			return err
		}
		if err := reports.Save(counts, path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown report kind %q", *kind)
	}

	logging.Info().Str("kind", *kind).Str("genre", *genre).Str("path", path).Msg("Report written")
	return nil
}

func newQueue(cfg *config.Config, db *database.DB, fetcher enrich.Fetcher) *enrich.Queue {
	cache := enrich.NewCache(db, cfg.Enrich.TTL)
	return enrich.NewQueue(cache, fetcher, enrich.Options{
		Interval:     cfg.Enrich.Interval,
		FetchTimeout: cfg.Enrich.FetchTimeout,
		Retry: enrich.RetryPolicy{
			MaxAttempts: cfg.Enrich.MaxAttempts,
			Backoff:     cfg.Enrich.Backoff,
			OnExhausted: enrich.ExhaustPause,
		},
	})
}

func openStores(cfg *config.Config) (*database.DB, *kv.Store, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	kvStore, err := kv.Open(cfg.KV.Path)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open kv store: %w", err)
	}
	return db, kvStore, nil
}

func closeStores(db *database.DB, kvStore *kv.Store) {
	if err := kvStore.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing kv store")
	}
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}
