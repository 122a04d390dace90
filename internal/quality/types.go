// internal/quality/types.go

// Package quality audits stored content records against per-type rule
// tables and produces issue reports for the dashboard and export sinks.
package quality

import "time"

// ContentType selects the rule table applied to a record.
type ContentType string

const (
	ContentEvent      ContentType = "event"
	ContentRestaurant ContentType = "restaurant"
	ContentAttraction ContentType = "attraction"
	ContentPlayground ContentType = "playground"
)

// ContentTypes lists every audited type in dashboard order.
var ContentTypes = []ContentType{ContentEvent, ContentRestaurant, ContentAttraction, ContentPlayground}

// Severity grades an issue. Errors block publication, warnings should be
// reviewed, infos are cosmetic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one rule violation on one record. Current carries the offending
// stored value when the field is present but bad; AutoFixable issues carry
// the corrected value in Suggested.
type Issue struct {
	ItemID      string      `json:"item_id"`
	ItemTitle   string      `json:"item_title"`
	ContentType ContentType `json:"content_type"`
	Field       string      `json:"field"`
	Severity    Severity    `json:"severity"`
	Message     string      `json:"message"`
	Current     string      `json:"current,omitempty"`
	AutoFixable bool        `json:"auto_fixable"`
	Suggested   string      `json:"suggested,omitempty"`
}

// Record is the field superset the rule tables inspect. Types ignore the
// fields that do not apply to them; a zero Date means no date is stored.
type Record struct {
	ID          string
	Title       string
	ImageURL    string
	Description string
	Enhanced    string

	// Event fields.
	Venue     string
	Date      time.Time
	Category  string
	SourceURL string

	// Place fields (restaurant, attraction, playground).
	Location  string
	Cuisine   string
	Phone     string
	Website   string
	PlaceType string
	Amenities []string
}

// Summary aggregates one content type's audit.
type Summary struct {
	ContentType ContentType `json:"content_type"`
	Total       int         `json:"total"`
	Errors      int         `json:"errors"`
	Warnings    int         `json:"warnings"`
	Infos       int         `json:"infos"`
	Issues      []Issue     `json:"issues"`
}

// Report is the full dashboard payload across all content types.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Summaries   []Summary `json:"summaries"`
}
