// internal/ingest/crawler_test.go

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/fetch"
	"github.com/citypulse/eventharvest/internal/monitoring"
	"github.com/citypulse/eventharvest/internal/resolve"
	"github.com/citypulse/eventharvest/internal/store"
	"github.com/citypulse/eventharvest/internal/utils"
)

type scheduleWrite struct {
	startLocal time.Time
	timezone   string
	startUTC   time.Time
}

type fakeScheduleStore struct {
	events  []store.Event
	listErr error
	writes  map[string]scheduleWrite
	gotID   string
}

func (s *fakeScheduleStore) ListEventsForCrawl(_ context.Context, eventID string, limit int) ([]store.Event, error) {
	s.gotID = eventID
	if s.listErr != nil {
		return nil, s.listErr
	}
	if eventID != "" {
		for _, ev := range s.events {
			if ev.ID == eventID {
				return []store.Event{ev}, nil
			}
		}
		return nil, nil
	}
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *fakeScheduleStore) UpdateEventSchedule(_ context.Context, id string, startLocal time.Time, timezone string, startUTC time.Time) error {
	if s.writes == nil {
		s.writes = map[string]scheduleWrite{}
	}
	s.writes[id] = scheduleWrite{startLocal, timezone, startUTC}
	return nil
}

type fakeBrowser struct {
	pages map[string]string
	errs  map[string]error
}

func (b *fakeBrowser) FetchHTML(_ context.Context, url string) (*fetch.RawPage, error) {
	if err := b.errs[url]; err != nil {
		return nil, err
	}
	return &fetch.RawPage{URL: url, HTML: b.pages[url], StatusCode: 200, FetchedAt: time.Now()}, nil
}

func newTestCrawler(t *testing.T, st ScheduleStore, browser HTMLFetcher) *DateTimeCrawler {
	t.Helper()
	resolver, err := resolve.NewResolver(config.ResolveConfig{Timezone: "America/Chicago"})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	resolver.SetNow(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return NewDateTimeCrawler(st, browser, resolver, monitoring.NewMetrics(), utils.NewLogger(), 0, 50)
}

const schedulePage = `<html><head>
<script type="application/ld+json">{"@type":"Event","startDate":"2026-06-20T19:30:00-05:00","name":"Summer Concert"}</script>
</head><body></body></html>`

func TestDateTimeCrawlerApply(t *testing.T) {
	st := &fakeScheduleStore{events: []store.Event{
		{ID: "ev-1", Title: "Summer Concert", SourceURL: "https://venue.example.com/concert"},
	}}
	browser := &fakeBrowser{pages: map[string]string{
		"https://venue.example.com/concert": schedulePage,
	}}

	c := newTestCrawler(t, st, browser)
	report, err := c.Run(context.Background(), CrawlOptions{Apply: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Checked != 1 || report.Updated != 1 || report.Errors != 0 {
		t.Fatalf("report = %+v", report)
	}

	w, ok := st.writes["ev-1"]
	if !ok {
		t.Fatal("schedule not written")
	}
	if w.timezone != "America/Chicago" {
		t.Errorf("timezone = %q", w.timezone)
	}
	if w.startLocal.Hour() != 19 || w.startLocal.Minute() != 30 {
		t.Errorf("startLocal = %v", w.startLocal)
	}
	// 19:30 at -05:00 is 00:30 UTC the next day.
	if w.startUTC.Hour() != 0 || w.startUTC.Minute() != 30 {
		t.Errorf("startUTC = %v", w.startUTC)
	}

	up := report.Updates[0]
	if up.Confidence != "high" || up.Strategy != "structured_data" {
		t.Errorf("update = %+v", up)
	}
	if !up.Applied {
		t.Error("applied flag not set")
	}
}

func TestDateTimeCrawlerDryRun(t *testing.T) {
	st := &fakeScheduleStore{events: []store.Event{
		{ID: "ev-1", Title: "Summer Concert", SourceURL: "https://venue.example.com/concert"},
	}}
	browser := &fakeBrowser{pages: map[string]string{
		"https://venue.example.com/concert": schedulePage,
	}}

	c := newTestCrawler(t, st, browser)
	report, err := c.Run(context.Background(), CrawlOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.DryRun || report.Updated != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(st.writes) != 0 {
		t.Errorf("dry run must not write, got %v", st.writes)
	}
}

func TestDateTimeCrawlerUnresolvedIsNotError(t *testing.T) {
	st := &fakeScheduleStore{events: []store.Event{
		{ID: "ev-1", Title: "Mystery Show", SourceURL: "https://venue.example.com/mystery"},
	}}
	browser := &fakeBrowser{pages: map[string]string{
		"https://venue.example.com/mystery": "<html><body><p>Details coming soon.</p></body></html>",
	}}

	c := newTestCrawler(t, st, browser)
	report, err := c.Run(context.Background(), CrawlOptions{Apply: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Checked != 1 || report.Updated != 0 || report.Errors != 0 {
		t.Errorf("report = %+v, absence of a date is not an error", report)
	}
}

func TestDateTimeCrawlerFetchFailure(t *testing.T) {
	st := &fakeScheduleStore{events: []store.Event{
		{ID: "ev-1", Title: "A", SourceURL: "https://venue.example.com/a"},
		{ID: "ev-2", Title: "B", SourceURL: "https://venue.example.com/b"},
	}}
	browser := &fakeBrowser{
		pages: map[string]string{"https://venue.example.com/b": schedulePage},
		errs: map[string]error{
			"https://venue.example.com/a": &fetch.FetchError{URL: "https://venue.example.com/a", Kind: fetch.KindTimeout, Err: errors.New("deadline exceeded")},
		},
	}

	c := newTestCrawler(t, st, browser)
	report, err := c.Run(context.Background(), CrawlOptions{Apply: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Errors != 1 || report.Updated != 1 {
		t.Errorf("report = %+v, one failure must not stop the batch", report)
	}
	if report.ErrorDetails[0].EventID != "ev-1" {
		t.Errorf("error detail = %+v", report.ErrorDetails[0])
	}
}

func TestDateTimeCrawlerEventIDFilter(t *testing.T) {
	st := &fakeScheduleStore{events: []store.Event{
		{ID: "ev-1", Title: "A", SourceURL: "https://venue.example.com/a"},
		{ID: "ev-2", Title: "B", SourceURL: "https://venue.example.com/b"},
	}}
	browser := &fakeBrowser{pages: map[string]string{
		"https://venue.example.com/b": schedulePage,
	}}

	c := newTestCrawler(t, st, browser)
	report, err := c.Run(context.Background(), CrawlOptions{Apply: true, EventID: "ev-2"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.gotID != "ev-2" {
		t.Errorf("store queried with id %q", st.gotID)
	}
	if report.Checked != 1 || report.Updated != 1 {
		t.Errorf("report = %+v", report)
	}
}
