// internal/ingest/crawler.go

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/citypulse/eventharvest/internal/extract"
	"github.com/citypulse/eventharvest/internal/fetch"
	"github.com/citypulse/eventharvest/internal/monitoring"
	"github.com/citypulse/eventharvest/internal/resolve"
	"github.com/citypulse/eventharvest/internal/store"
	"github.com/citypulse/eventharvest/internal/utils"
)

// HTMLFetcher renders a page and returns its HTML. Satisfied by
// fetch.BrowserSession.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (*fetch.RawPage, error)
}

// ScheduleStore is the store surface the crawler needs.
type ScheduleStore interface {
	ListEventsForCrawl(ctx context.Context, eventID string, limit int) ([]store.Event, error)
	UpdateEventSchedule(ctx context.Context, id string, startLocal time.Time, timezone string, startUTC time.Time) error
}

// CrawlOptions narrow one crawler run.
type CrawlOptions struct {
	// Apply writes resolved schedules to the store. Off means dry run.
	Apply bool
	// EventID restricts the batch to a single event when set.
	EventID string
	// Limit caps the batch size; zero uses the configured default.
	Limit int
}

// DateTimeCrawler visits each event's source page in a real browser and
// resolves missing or stale start date/times.
type DateTimeCrawler struct {
	store    ScheduleStore
	browser  HTMLFetcher
	resolver *resolve.Resolver
	metrics  *monitoring.Metrics
	logger   utils.Logger
	delay    time.Duration
	limit    int
}

// NewDateTimeCrawler wires a crawler. delay is the pause between items,
// defaultLimit bounds batches with no explicit limit.
func NewDateTimeCrawler(st ScheduleStore, browser HTMLFetcher, resolver *resolve.Resolver,
	metrics *monitoring.Metrics, logger utils.Logger, delay time.Duration, defaultLimit int) *DateTimeCrawler {
	return &DateTimeCrawler{
		store:    st,
		browser:  browser,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
		delay:    delay,
		limit:    defaultLimit,
	}
}

// Run executes one batch. The returned report is non-nil even when items
// failed; only a store listing failure or context cancellation aborts.
func (c *DateTimeCrawler) Run(ctx context.Context, opts CrawlOptions) (*CrawlReport, error) {
	started := time.Now()
	defer func() {
		c.metrics.BatchDuration.WithLabelValues("crawler").Observe(time.Since(started).Seconds())
	}()

	limit := opts.Limit
	if limit <= 0 {
		limit = c.limit
	}

	events, err := c.store.ListEventsForCrawl(ctx, opts.EventID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	report := &CrawlReport{
		Success:      true,
		DryRun:       !opts.Apply,
		Updates:      []ScheduleUpdate{},
		ErrorDetails: []ItemError{},
	}
	c.logger.WithFields(map[string]interface{}{
		"events": len(events),
		"apply":  opts.Apply,
	}).Info("starting date/time crawl")

	for i, ev := range events {
		if i > 0 {
			if err := sleep(ctx, c.delay); err != nil {
				return report, err
			}
		}
		report.Checked++
		c.crawlOne(ctx, ev, opts.Apply, report)
	}

	report.Errors = len(report.ErrorDetails)
	c.logger.WithFields(map[string]interface{}{
		"checked": report.Checked,
		"updated": report.Updated,
		"errors":  report.Errors,
	}).Info("date/time crawl finished")
	return report, nil
}

func (c *DateTimeCrawler) crawlOne(ctx context.Context, ev store.Event, apply bool, report *CrawlReport) {
	log := c.logger.WithFields(map[string]interface{}{"event_id": ev.ID, "url": ev.SourceURL})

	page, err := c.browser.FetchHTML(ctx, ev.SourceURL)
	if err != nil {
		kind := "network"
		if fe, ok := fetch.IsFetchError(err); ok {
			kind = string(fe.Kind)
		}
		c.metrics.FetchErrors.WithLabelValues(kind).Inc()
		report.ErrorDetails = append(report.ErrorDetails, ItemError{
			EventID: ev.ID, Title: ev.Title, URL: ev.SourceURL, Message: err.Error(),
		})
		log.Warnf("fetch failed: %v", err)
		return
	}
	c.metrics.PagesFetched.WithLabelValues("browser").Inc()

	candidates := extract.Extract(page.HTML)
	res, ok := c.resolver.ResolveDateTime(candidates, ev.SourceURL)
	if !ok {
		c.metrics.ItemsSkipped.WithLabelValues("crawler", "unresolved").Inc()
		log.Info("no plausible date/time found, skipping")
		return
	}

	update := ScheduleUpdate{
		EventID:    ev.ID,
		Title:      ev.Title,
		DateRaw:    res.DateRaw,
		TimeRaw:    res.TimeRaw,
		StartLocal: res.StartLocal,
		StartUTC:   res.StartUTC,
		Timezone:   res.Timezone,
		Confidence: string(res.Confidence),
		Strategy:   string(res.Strategy),
	}

	if apply {
		if err := c.store.UpdateEventSchedule(ctx, ev.ID, res.StartLocal, res.Timezone, res.StartUTC); err != nil {
			report.ErrorDetails = append(report.ErrorDetails, ItemError{
				EventID: ev.ID, Title: ev.Title, URL: ev.SourceURL, Message: err.Error(),
			})
			log.Errorf("schedule update failed: %v", err)
			return
		}
		update.Applied = true
		c.metrics.ItemsUpdated.WithLabelValues("crawler").Inc()
	}

	report.Updates = append(report.Updates, update)
	report.Updated++
	log.WithFields(map[string]interface{}{
		"start_local": res.StartLocal.Format(time.RFC3339),
		"confidence":  res.Confidence,
		"applied":     update.Applied,
	}).Info("schedule resolved")
}
