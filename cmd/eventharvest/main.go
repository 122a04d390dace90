// cmd/eventharvest/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/citypulse/eventharvest/internal/ai"
	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/fetch"
	"github.com/citypulse/eventharvest/internal/ingest"
	"github.com/citypulse/eventharvest/internal/monitoring"
	"github.com/citypulse/eventharvest/internal/quality"
	"github.com/citypulse/eventharvest/internal/resolve"
	"github.com/citypulse/eventharvest/internal/store"
	"github.com/citypulse/eventharvest/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "crawl":
		runCrawl(os.Args[2:])

	case "fixurls":
		runFixURLs(os.Args[2:])

	case "quality":
		runQuality(os.Args[2:])

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: eventharvest validate <config.yaml>\n")
			os.Exit(1)
		}
		validateConfig(os.Args[2])

	case "template":
		template, err := config.GenerateTemplate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(template))

	case "version", "--version", "-v":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runtime bundles everything the pipeline commands share.
type runtime struct {
	cfg     *config.Config
	logger  utils.Logger
	store   *store.Store
	metrics *monitoring.Metrics
}

func buildRuntime(configFile string) (*runtime, error) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		metrics: monitoring.NewMetrics(),
	}, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "eventharvest.yaml", "configuration file")
	apply := fs.Bool("apply", false, "write resolved schedules to the store")
	limit := fs.Int("limit", 0, "max events to process")
	eventID := fs.String("event-id", "", "process a single event")
	fs.Parse(args)

	rt, err := buildRuntime(*configFile)
	if err != nil {
		fatal(err)
	}
	defer rt.store.Close()

	browser, err := fetch.NewBrowserSession(rt.cfg.Browser)
	if err != nil {
		fatal(fmt.Errorf("starting browser: %w", err))
	}
	defer browser.Close()

	resolver, err := resolve.NewResolver(rt.cfg.Resolve)
	if err != nil {
		fatal(err)
	}

	crawler := ingest.NewDateTimeCrawler(rt.store, browser, resolver, rt.metrics,
		rt.logger, rt.cfg.Resolve.CrawlDelay.Std(), rt.cfg.Resolve.BatchLimit)

	report, err := crawler.Run(context.Background(), ingest.CrawlOptions{
		Apply:   *apply,
		Limit:   *limit,
		EventID: *eventID,
	})
	if err != nil {
		fatal(err)
	}

	printReport(report)
	if report.Errors > 0 {
		os.Exit(1)
	}
}

func runFixURLs(args []string) {
	fs := flag.NewFlagSet("fixurls", flag.ExitOnError)
	configFile := fs.String("config", "eventharvest.yaml", "configuration file")
	apply := fs.Bool("apply", false, "write resolved URLs to the store")
	limit := fs.Int("limit", 0, "max events to process")
	fs.Parse(args)

	rt, err := buildRuntime(*configFile)
	if err != nil {
		fatal(err)
	}
	defer rt.store.Close()

	var suggester resolve.AISuggester
	if rt.cfg.AI.Enabled() {
		suggester = ai.NewClient(rt.cfg.AI)
	} else {
		rt.logger.Warn("no AI API key configured, link scanning only")
	}

	fetcher := fetch.NewClient(rt.cfg.Fetch)
	resolver := resolve.NewURLResolver(rt.cfg.Resolve, suggester)
	fixer := ingest.NewURLFixer(rt.store, fetcher, resolver, rt.metrics,
		rt.logger, rt.cfg.Resolve.ItemDelay.Std(), rt.cfg.Resolve.BatchLimit)

	report, err := fixer.Run(context.Background(), ingest.FixOptions{
		Apply: *apply,
		Limit: *limit,
	})
	if err != nil {
		fatal(err)
	}

	printReport(report)
	if report.Errors > 0 {
		os.Exit(1)
	}
}

func runQuality(args []string) {
	fs := flag.NewFlagSet("quality", flag.ExitOnError)
	configFile := fs.String("config", "eventharvest.yaml", "configuration file")
	export := fs.String("export", "", "write the report to a file (.json, .csv, .xlsx, .sqlite)")
	fs.Parse(args)

	rt, err := buildRuntime(*configFile)
	if err != nil {
		fatal(err)
	}
	defer rt.store.Close()

	records, err := rt.store.ListQualityRecords(context.Background())
	if err != nil {
		fatal(fmt.Errorf("loading records: %w", err))
	}

	report := quality.NewEngine().AnalyzeAll(records)
	if *export != "" {
		if err := quality.Export(report, *export); err != nil {
			fatal(err)
		}
		fmt.Printf("Report written to %s\n", *export)
		return
	}
	printReport(report)
}

func validateConfig(configFile string) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fatal(fmt.Errorf("loading configuration: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		fatal(fmt.Errorf("configuration validation failed: %w", err))
	}
	fmt.Printf("Configuration file '%s' is valid\n", configFile)
}

func printReport(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(fmt.Errorf("encoding report: %w", err))
	}
}

func printVersion() {
	fmt.Printf("eventharvest %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
}

func printUsage() {
	fmt.Println("EventHarvest - Local Events Content Ingestion Toolkit")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  eventharvest crawl [--config file] [--apply] [--limit N] [--event-id ID]")
	fmt.Println("      Resolve event start date/times from source pages")
	fmt.Println("  eventharvest fixurls [--config file] [--apply] [--limit N]")
	fmt.Println("      Replace aggregator listing URLs with canonical event pages")
	fmt.Println("  eventharvest quality [--config file] [--export file]")
	fmt.Println("      Audit stored content against the quality rules")
	fmt.Println("  eventharvest validate <config.yaml>")
	fmt.Println("      Validate a configuration file")
	fmt.Println("  eventharvest template")
	fmt.Println("      Print a configuration template")
	fmt.Println("  eventharvest version")
	fmt.Println("      Show version information")
	fmt.Println()
	fmt.Println("Pipeline commands run dry by default; pass --apply to write changes.")
}
