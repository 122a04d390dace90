// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/citypulse/eventharvest/internal/ai"
	"github.com/citypulse/eventharvest/internal/api"
	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/fetch"
	"github.com/citypulse/eventharvest/internal/ingest"
	"github.com/citypulse/eventharvest/internal/monitoring"
	"github.com/citypulse/eventharvest/internal/quality"
	"github.com/citypulse/eventharvest/internal/resolve"
	"github.com/citypulse/eventharvest/internal/store"
	"github.com/citypulse/eventharvest/internal/utils"
)

func main() {
	configFile := flag.String("config", "eventharvest.yaml", "configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))
	metrics := monitoring.NewMetrics()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	browser, err := fetch.NewBrowserSession(cfg.Browser)
	if err != nil {
		return fmt.Errorf("starting browser: %w", err)
	}
	defer browser.Close()

	scheduleResolver, err := resolve.NewResolver(cfg.Resolve)
	if err != nil {
		return err
	}

	var suggester resolve.AISuggester
	if cfg.AI.Enabled() {
		suggester = ai.NewClient(cfg.AI)
	} else {
		logger.Warn("no AI API key configured, link scanning only")
	}

	crawler := ingest.NewDateTimeCrawler(st, browser, scheduleResolver, metrics,
		logger, cfg.Resolve.CrawlDelay.Std(), cfg.Resolve.BatchLimit)
	fixer := ingest.NewURLFixer(st, fetch.NewClient(cfg.Fetch),
		resolve.NewURLResolver(cfg.Resolve, suggester), metrics,
		logger, cfg.Resolve.ItemDelay.Std(), cfg.Resolve.BatchLimit)

	srv := api.NewServer(cfg.Server, crawler, fixer, st, quality.NewEngine(), metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
