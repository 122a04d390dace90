// internal/api/server_test.go

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/ingest"
	"github.com/citypulse/eventharvest/internal/monitoring"
	"github.com/citypulse/eventharvest/internal/quality"
	"github.com/citypulse/eventharvest/internal/utils"
)

type stubCrawler struct {
	gotOpts ingest.CrawlOptions
	report  *ingest.CrawlReport
	err     error
}

func (s *stubCrawler) Run(_ context.Context, opts ingest.CrawlOptions) (*ingest.CrawlReport, error) {
	s.gotOpts = opts
	return s.report, s.err
}

type stubFixer struct {
	gotOpts ingest.FixOptions
	report  *ingest.FixReport
	err     error
}

func (s *stubFixer) Run(_ context.Context, opts ingest.FixOptions) (*ingest.FixReport, error) {
	s.gotOpts = opts
	return s.report, s.err
}

type stubSource struct {
	records map[quality.ContentType][]quality.Record
	err     error
}

func (s *stubSource) ListQualityRecords(_ context.Context) (map[quality.ContentType][]quality.Record, error) {
	return s.records, s.err
}

func newTestServer(crawler CrawlRunner, fixer FixRunner, source QualitySource) *Server {
	engine := &quality.Engine{Now: func() time.Time {
		return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	}}
	return NewServer(config.ServerConfig{Addr: ":0"}, crawler, fixer, source,
		engine, monitoring.NewMetrics(), utils.NewLogger())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubCrawler{}, &stubFixer{}, &stubSource{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestQualityEndpoint(t *testing.T) {
	source := &stubSource{records: map[quality.ContentType][]quality.Record{
		quality.ContentEvent: {{ID: "ev-1", Title: "Show"}}, // missing venue and date
	}}
	srv := newTestServer(&stubCrawler{}, &stubFixer{}, source)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quality", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var report quality.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(report.Summaries) != len(quality.ContentTypes) {
		t.Errorf("summaries = %d", len(report.Summaries))
	}
	if report.Summaries[0].Errors == 0 {
		t.Error("expected errors for event missing venue and date")
	}
}

func TestQualityEndpointSourceFailure(t *testing.T) {
	srv := newTestServer(&stubCrawler{}, &stubFixer{}, &stubSource{err: errors.New("db down")})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quality", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestFixEndpoint(t *testing.T) {
	fixer := &stubFixer{report: &ingest.FixReport{Success: true, Checked: 3, Updated: 1}}
	srv := newTestServer(&stubCrawler{}, fixer, &stubSource{})

	body := strings.NewReader(`{"apply":true,"limit":10}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fix-source-urls", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !fixer.gotOpts.Apply || fixer.gotOpts.Limit != 10 {
		t.Errorf("opts = %+v", fixer.gotOpts)
	}

	var report ingest.FixReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if report.Checked != 3 || report.Updated != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestFixEndpointEmptyBodyIsDryRun(t *testing.T) {
	fixer := &stubFixer{report: &ingest.FixReport{Success: true}}
	srv := newTestServer(&stubCrawler{}, fixer, &stubSource{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fix-source-urls", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if fixer.gotOpts.Apply {
		t.Error("empty body must default to dry run")
	}
}

func TestCrawlEndpoint(t *testing.T) {
	crawler := &stubCrawler{report: &ingest.CrawlReport{Success: true, Checked: 2}}
	srv := newTestServer(crawler, &stubFixer{}, &stubSource{})

	body := strings.NewReader(`{"apply":true,"event_id":"ev-7"}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/crawl-datetimes", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if crawler.gotOpts.EventID != "ev-7" || !crawler.gotOpts.Apply {
		t.Errorf("opts = %+v", crawler.gotOpts)
	}
}

func TestCrawlEndpointBadJSON(t *testing.T) {
	srv := newTestServer(&stubCrawler{}, &stubFixer{}, &stubSource{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/crawl-datetimes", strings.NewReader("{bad")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubCrawler{}, &stubFixer{}, &stubSource{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fix-source-urls", nil))
	if rec.Code == http.StatusOK {
		t.Errorf("GET on a POST route must not succeed, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&stubCrawler{}, &stubFixer{}, &stubSource{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
