// internal/ingest/report.go

// Package ingest runs the batch pipelines: the date/time crawler and the
// source-URL fixer. Batches are sequential by design; the sites being
// visited are small and a polite fixed delay between items keeps them that
// way. One bad item never stops a batch.
package ingest

import (
	"context"
	"time"
)

// ItemError records one failed item in a batch. The batch itself still
// reports Success; Errors counts these.
type ItemError struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// ScheduleUpdate records one resolved (and possibly applied) event start.
type ScheduleUpdate struct {
	EventID    string    `json:"event_id"`
	Title      string    `json:"title"`
	DateRaw    string    `json:"date_raw"`
	TimeRaw    string    `json:"time_raw,omitempty"`
	StartLocal time.Time `json:"start_local"`
	StartUTC   time.Time `json:"start_utc"`
	Timezone   string    `json:"timezone"`
	Confidence string    `json:"confidence"`
	Strategy   string    `json:"strategy"`
	Applied    bool      `json:"applied"`
}

// CrawlReport is the date/time crawler's batch result.
type CrawlReport struct {
	Success      bool             `json:"success"`
	DryRun       bool             `json:"dry_run"`
	Checked      int              `json:"checked"`
	Updated      int              `json:"updated"`
	Errors       int              `json:"errors"`
	Updates      []ScheduleUpdate `json:"updates"`
	ErrorDetails []ItemError      `json:"error_details"`
}

// URLUpdate records one resolved (and possibly applied) source URL change.
type URLUpdate struct {
	EventID    string `json:"event_id"`
	Title      string `json:"title"`
	OldURL     string `json:"old_url"`
	NewURL     string `json:"new_url"`
	Kind       string `json:"kind"`
	Confidence string `json:"confidence"`
	FromAI     bool   `json:"from_ai"`
	Applied    bool   `json:"applied"`
}

// FixReport is the URL fixer's batch result.
type FixReport struct {
	Success      bool        `json:"success"`
	DryRun       bool        `json:"dry_run"`
	Checked      int         `json:"checked"`
	Updated      int         `json:"updated"`
	Errors       int         `json:"errors"`
	Updates      []URLUpdate `json:"updates"`
	ErrorDetails []ItemError `json:"error_details"`
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
