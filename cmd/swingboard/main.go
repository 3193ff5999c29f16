package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"swingboard/internal/catalog"
	"swingboard/internal/config"
	"swingboard/internal/ingest"
	appLog "swingboard/internal/log"
	"swingboard/internal/metrics"
	"swingboard/internal/recur"
	"swingboard/internal/store"
	"swingboard/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	scrape     bool
}

func main() {
	appLog.Info("swingboard starting", "version", "0.1.0-dev")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"log_level", conf.LogLevel,
		"backend", string(conf.Store.Backend),
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.scrape {
		if err := runScrape(ctx, conf); err != nil {
			appLog.Error("scrape run failed", err)
			os.Exit(1)
		}
		return
	}

	src, closeSrc, err := buildSource(ctx, conf)
	if err != nil {
		appLog.Error("failed to initialize record source", err, "backend", string(conf.Store.Backend))
		os.Exit(1)
	}
	defer closeSrc()

	cache := store.NewCache()

	refresh := func() {
		if err := refreshSnapshot(ctx, src, cache, conf.HorizonDays); err != nil {
			appLog.Error("snapshot refresh failed", err, "backend", src.Name())
			metrics.RefreshTotal.WithLabelValues(src.Name(), "error").Inc()
			return
		}
		metrics.RefreshTotal.WithLabelValues(src.Name(), "ok").Inc()
		metrics.SnapshotSize.Set(float64(cache.Len()))
		appLog.Info("snapshot refreshed", "backend", src.Name(), "records", cache.Len())
	}

	// Initial load before serving.
	refresh()

	if flags.once {
		appLog.Info("single refresh complete, exiting")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:    conf.Listen,
		Handler: web.NewServer(conf, cache).Handler(),
	}

	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}
	appLog.Info("swingboard exiting")
}

// buildSource constructs the configured record source. The returned closer
// is a no-op for backends without connection state.
func buildSource(ctx context.Context, conf *config.Config) (store.Source, func(), error) {
	switch conf.Store.Backend {
	case config.StorePostgres:
		pg, err := store.NewPostgresSource(ctx, conf.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Ready(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case config.StoreFeed:
		if conf.Store.FeedURL == "" {
			return nil, nil, errors.New("store.feed_url is required for the feed backend")
		}
		return store.NewFeedSource(conf.Store.FeedURL, conf.Store.CacheDir), func() {}, nil
	default:
		return nil, nil, errors.New("unknown store backend: " + string(conf.Store.Backend))
	}
}

// refreshSnapshot loads the record list, materializes weekly recurrences
// over the configured horizon, and swaps the snapshot in.
func refreshSnapshot(ctx context.Context, src store.Source, cache *store.Cache, horizonDays int) error {
	recs, err := src.Load(ctx)
	if err != nil {
		return err
	}

	now := time.Now().In(catalog.KST)
	expanded, err := recur.Materialize(recs, recur.Config{
		RangeStart: now,
		RangeEnd:   now.AddDate(0, 0, horizonDays),
	})
	if err != nil {
		return err
	}

	cache.Set(expanded)
	return nil
}

// runScrape extracts all configured announcement pages and writes the
// candidate batch as JSON to stdout, ready to be posted to /api/review
// after external structured parsing.
func runScrape(ctx context.Context, conf *config.Config) error {
	if len(conf.Ingest.Sources) == 0 {
		return errors.New("no ingest.sources configured")
	}

	timeout := time.Duration(conf.Ingest.TimeoutSeconds) * time.Second
	cands := ingest.ScrapeAll(ctx, conf.Ingest.Sources, timeout)
	appLog.Info("scrape batch finished", "sources", len(conf.Ingest.Sources), "candidates", len(cands))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cands)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/swingboard/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one snapshot refresh and exit")
	flag.BoolVar(&cfg.scrape, "scrape", false, "Scrape configured sources, print candidates as JSON and exit")

	flag.Parse()

	return cfg
}
