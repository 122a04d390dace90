// internal/ingest/fixer.go

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/citypulse/eventharvest/internal/fetch"
	"github.com/citypulse/eventharvest/internal/monitoring"
	"github.com/citypulse/eventharvest/internal/resolve"
	"github.com/citypulse/eventharvest/internal/store"
	"github.com/citypulse/eventharvest/internal/utils"
)

// PageFetcher retrieves a page over plain HTTP. Satisfied by fetch.Client.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.RawPage, error)
}

// URLStore is the store surface the fixer needs.
type URLStore interface {
	ListFutureEvents(ctx context.Context, now time.Time, limit int) ([]store.Event, error)
	UpdateEventSourceURL(ctx context.Context, id, sourceURL string) error
}

// FixOptions narrow one fixer run.
type FixOptions struct {
	// Apply writes resolved URLs to the store. Off means dry run.
	Apply bool
	// Limit caps the batch size; zero uses the configured default.
	Limit int
}

// URLFixer replaces aggregator listing URLs on upcoming events with the
// event's canonical page when one can be found.
type URLFixer struct {
	store    URLStore
	fetcher  PageFetcher
	resolver *resolve.URLResolver
	metrics  *monitoring.Metrics
	logger   utils.Logger
	delay    time.Duration
	limit    int
	now      func() time.Time
}

// NewURLFixer wires a fixer. delay is the pause between items, defaultLimit
// bounds batches with no explicit limit.
func NewURLFixer(st URLStore, fetcher PageFetcher, resolver *resolve.URLResolver,
	metrics *monitoring.Metrics, logger utils.Logger, delay time.Duration, defaultLimit int) *URLFixer {
	return &URLFixer{
		store:    st,
		fetcher:  fetcher,
		resolver: resolver,
		metrics:  metrics,
		logger:   logger,
		delay:    delay,
		limit:    defaultLimit,
		now:      time.Now,
	}
}

// SetNow overrides the clock used for the future-events query.
func (f *URLFixer) SetNow(now func() time.Time) { f.now = now }

// Run executes one batch over upcoming events. Per-item failures land in
// ErrorDetails; the report still comes back with Success set.
func (f *URLFixer) Run(ctx context.Context, opts FixOptions) (*FixReport, error) {
	started := time.Now()
	defer func() {
		f.metrics.BatchDuration.WithLabelValues("fixer").Observe(time.Since(started).Seconds())
	}()

	limit := opts.Limit
	if limit <= 0 {
		limit = f.limit
	}

	events, err := f.store.ListFutureEvents(ctx, f.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("listing future events: %w", err)
	}

	report := &FixReport{
		Success:      true,
		DryRun:       !opts.Apply,
		Updates:      []URLUpdate{},
		ErrorDetails: []ItemError{},
	}
	f.logger.WithFields(map[string]interface{}{
		"events": len(events),
		"apply":  opts.Apply,
	}).Info("starting source URL fix")

	first := true
	for _, ev := range events {
		if !f.resolver.IsAggregator(ev.SourceURL) {
			f.metrics.ItemsSkipped.WithLabelValues("fixer", "not_aggregator").Inc()
			continue
		}
		if !first {
			if err := sleep(ctx, f.delay); err != nil {
				return report, err
			}
		}
		first = false
		report.Checked++
		f.fixOne(ctx, ev, opts.Apply, report)
	}

	report.Errors = len(report.ErrorDetails)
	f.logger.WithFields(map[string]interface{}{
		"checked": report.Checked,
		"updated": report.Updated,
		"errors":  report.Errors,
	}).Info("source URL fix finished")
	return report, nil
}

func (f *URLFixer) fixOne(ctx context.Context, ev store.Event, apply bool, report *FixReport) {
	log := f.logger.WithFields(map[string]interface{}{"event_id": ev.ID, "url": ev.SourceURL})

	page, err := f.fetcher.Fetch(ctx, ev.SourceURL)
	if err != nil {
		kind := "network"
		if fe, ok := fetch.IsFetchError(err); ok {
			kind = string(fe.Kind)
		}
		f.metrics.FetchErrors.WithLabelValues(kind).Inc()
		report.ErrorDetails = append(report.ErrorDetails, ItemError{
			EventID: ev.ID, Title: ev.Title, URL: ev.SourceURL, Message: err.Error(),
		})
		log.Warnf("fetch failed: %v", err)
		return
	}
	f.metrics.PagesFetched.WithLabelValues("http").Inc()

	res, ok, err := f.resolver.Resolve(ctx, page.HTML, ev.SourceURL, ev.Title)
	if err != nil {
		report.ErrorDetails = append(report.ErrorDetails, ItemError{
			EventID: ev.ID, Title: ev.Title, URL: ev.SourceURL, Message: err.Error(),
		})
		log.Warnf("resolution failed: %v", err)
		return
	}
	if !ok {
		f.metrics.ItemsSkipped.WithLabelValues("fixer", "no_candidate").Inc()
		log.Info("no better URL found, keeping current")
		return
	}

	update := URLUpdate{
		EventID:    ev.ID,
		Title:      ev.Title,
		OldURL:     ev.SourceURL,
		NewURL:     res.URL,
		Kind:       string(res.Kind),
		Confidence: string(res.Confidence),
		FromAI:     res.FromAI,
	}

	if apply {
		if err := f.store.UpdateEventSourceURL(ctx, ev.ID, res.URL); err != nil {
			report.ErrorDetails = append(report.ErrorDetails, ItemError{
				EventID: ev.ID, Title: ev.Title, URL: ev.SourceURL, Message: err.Error(),
			})
			log.Errorf("source URL update failed: %v", err)
			return
		}
		update.Applied = true
		f.metrics.ItemsUpdated.WithLabelValues("fixer").Inc()
	}

	report.Updates = append(report.Updates, update)
	report.Updated++
	log.WithFields(map[string]interface{}{
		"new_url":    res.URL,
		"confidence": res.Confidence,
		"applied":    update.Applied,
	}).Info("source URL resolved")
}
