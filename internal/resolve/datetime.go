// internal/resolve/datetime.go

// Package resolve turns extracted candidate signals into typed field values.
// It owns the strategy priority (structured data beats patterns beats
// selector text), the local-to-UTC conversion, and the confidence labeling.
package resolve

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/extract"
)

// Confidence labels how trustworthy a resolved value is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ScheduleResolution is a resolved event start. StartLocal carries the
// configured location; StartUTC is the same instant converted for storage.
type ScheduleResolution struct {
	StartLocal time.Time
	StartUTC   time.Time
	Timezone   string
	Confidence Confidence
	Strategy   extract.Strategy
	DateRaw    string
	TimeRaw    string
}

// Resolver resolves date/time candidates against a configured timezone.
type Resolver struct {
	loc             *time.Location
	timezone        string
	ticketPlatforms []string
	now             func() time.Time
}

// NewResolver builds a Resolver from configuration. The timezone must be a
// valid IANA name.
func NewResolver(cfg config.ResolveConfig) (*Resolver, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = config.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return &Resolver{
		loc:             loc,
		timezone:        tz,
		ticketPlatforms: cfg.TicketPlatforms,
		now:             time.Now,
	}, nil
}

// SetNow overrides the clock used for the plausibility window. Tests use
// this to pin the window.
func (r *Resolver) SetNow(now func() time.Time) { r.now = now }

// dateLayouts are tried in order against raw date candidate strings.
var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"1/2/2006",
	"2006-01-02",
}

// schemaLayouts parse JSON-LD startDate values.
var schemaLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ResolveDateTime picks the best schedule from the candidate bag. Returns
// false when no candidate yields a plausible future start; that outcome is
// not an error, the caller simply skips the event.
//
// Structured data wins outright and is labeled high confidence. Otherwise
// the first parseable pattern date in the plausibility window is taken at
// medium confidence, promoted to high when a time of day was also found or
// when the page lives on a known ticketing platform.
func (r *Resolver) ResolveDateTime(c *extract.Candidates, pageURL string) (*ScheduleResolution, bool) {
	now := r.now()

	for _, schema := range c.Schemas {
		start, withTime, ok := r.parseSchemaStart(schema.StartDate)
		if !ok || !r.plausible(start, now) {
			continue
		}
		res := &ScheduleResolution{
			StartLocal: start,
			Timezone:   r.timezone,
			Confidence: ConfidenceHigh,
			Strategy:   extract.StrategySchema,
			DateRaw:    schema.StartDate,
		}
		if !withTime && len(c.Times) > 0 {
			if _, _, ok := parseClock(c.Times[0].Raw); ok {
				res.StartLocal = CombineDateTime(start, c.Times[0].Raw)
				res.TimeRaw = c.Times[0].Raw
			}
		}
		res.StartUTC = res.StartLocal.UTC()
		return res, true
	}

	for _, dc := range c.Dates {
		date, ok := r.parseDate(dc.Raw)
		if !ok || !r.plausible(date, now) {
			continue
		}
		res := &ScheduleResolution{
			StartLocal: date,
			Timezone:   r.timezone,
			Confidence: ConfidenceMedium,
			Strategy:   dc.Strategy,
			DateRaw:    dc.Raw,
		}
		// A parseable time candidate promotes confidence even when the
		// clock lands on midnight.
		if len(c.Times) > 0 {
			if _, _, ok := parseClock(c.Times[0].Raw); ok {
				res.StartLocal = CombineDateTime(date, c.Times[0].Raw)
				res.TimeRaw = c.Times[0].Raw
				res.Confidence = ConfidenceHigh
			}
		}
		if res.Confidence == ConfidenceMedium && r.onTicketPlatform(pageURL) {
			res.Confidence = ConfidenceHigh
		}
		res.StartUTC = res.StartLocal.UTC()
		return res, true
	}

	return nil, false
}

// parseDate parses a raw candidate into midnight local time.
func (r *Resolver) parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ".", ""))
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, r.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseSchemaStart parses a JSON-LD startDate. withTime reports whether the
// value carried a time of day of its own.
func (r *Resolver) parseSchemaStart(raw string) (t time.Time, withTime, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}
	for _, layout := range schemaLayouts {
		parsed, err := time.ParseInLocation(layout, raw, r.loc)
		if err != nil {
			continue
		}
		return parsed, layout != "2006-01-02", true
	}
	return time.Time{}, false, false
}

// plausible enforces the (now, now+1y] window. Past dates and dates more
// than a year out are almost always a stale page or a parse artifact.
func (r *Resolver) plausible(t, now time.Time) bool {
	return t.After(now) && !t.After(now.AddDate(1, 0, 0))
}

func (r *Resolver) onTicketPlatform(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	for _, d := range r.ticketPlatforms {
		if d != "" && strings.Contains(lower, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

var clockPattern = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*(AM|PM)?`)

// CombineDateTime merges a time-of-day string into a date, keeping the
// date's location. 12 AM maps to hour 0 and PM adds twelve except for
// 12 PM itself. When timeStr holds no recognizable clock time the date is
// returned unchanged.
func CombineDateTime(date time.Time, timeStr string) time.Time {
	hour, minute, ok := parseClock(timeStr)
	if !ok {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

// parseClock extracts a 24h hour and minute from a time-of-day string.
func parseClock(timeStr string) (hour, minute int, ok bool) {
	m := clockPattern.FindStringSubmatch(timeStr)
	if m == nil {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	switch strings.ToUpper(m[3]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 12 {
			hour += 12
		}
	}
	return hour, minute, true
}
