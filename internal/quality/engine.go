// internal/quality/engine.go

package quality

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Engine runs the rule tables. Now is injectable so the past-date rule is
// testable against a fixed clock.
type Engine struct {
	Now func() time.Time
}

// NewEngine returns an Engine on the real clock.
func NewEngine() *Engine {
	return &Engine{Now: time.Now}
}

// Analyze audits items of one content type and returns the summary.
func (e *Engine) Analyze(ct ContentType, items []Record) Summary {
	s := Summary{ContentType: ct, Total: len(items), Issues: []Issue{}}
	for _, item := range items {
		issues := e.universalRules(ct, item)
		switch ct {
		case ContentEvent:
			issues = append(issues, e.eventRules(item)...)
		case ContentRestaurant:
			issues = append(issues, e.restaurantRules(item)...)
		case ContentAttraction:
			issues = append(issues, e.attractionRules(item)...)
		case ContentPlayground:
			issues = append(issues, e.playgroundRules(item)...)
		}
		for _, issue := range issues {
			switch issue.Severity {
			case SeverityError:
				s.Errors++
			case SeverityWarning:
				s.Warnings++
			case SeverityInfo:
				s.Infos++
			}
		}
		s.Issues = append(s.Issues, issues...)
	}
	return s
}

// AnalyzeAll audits every content type and assembles the dashboard report.
func (e *Engine) AnalyzeAll(items map[ContentType][]Record) Report {
	r := Report{GeneratedAt: e.Now()}
	for _, ct := range ContentTypes {
		r.Summaries = append(r.Summaries, e.Analyze(ct, items[ct]))
	}
	return r
}

func (e *Engine) universalRules(ct ContentType, item Record) []Issue {
	var issues []Issue
	if strings.TrimSpace(item.Title) == "" {
		issues = append(issues, e.issue(ct, item, "title", SeverityError, "missing title"))
	}
	if strings.TrimSpace(item.ImageURL) == "" {
		issues = append(issues, e.issue(ct, item, "image_url", SeverityInfo, "no image"))
	} else if !validHTTPURL(item.ImageURL) {
		iss := e.issue(ct, item, "image_url", SeverityWarning, "image URL is not a valid http(s) URL")
		iss.Current = item.ImageURL
		issues = append(issues, iss)
	}
	return issues
}

func (e *Engine) eventRules(item Record) []Issue {
	var issues []Issue
	if strings.TrimSpace(item.Venue) == "" {
		issues = append(issues, e.issue(ContentEvent, item, "venue", SeverityError, "missing venue"))
	}
	if item.Date.IsZero() {
		issues = append(issues, e.issue(ContentEvent, item, "date", SeverityError, "missing date"))
	} else if item.Date.Before(e.Now()) {
		iss := e.issue(ContentEvent, item, "date", SeverityWarning,
			fmt.Sprintf("event date %s is in the past", item.Date.Format("2006-01-02")))
		iss.Current = item.Date.Format("2006-01-02")
		issues = append(issues, iss)
	}
	cat := strings.TrimSpace(item.Category)
	if cat == "" || strings.EqualFold(cat, "Uncategorized") {
		iss := e.issue(ContentEvent, item, "category", SeverityWarning, "missing or placeholder category")
		iss.Current = cat
		issues = append(issues, iss)
	}
	if item.SourceURL != "" && !validHTTPURL(item.SourceURL) {
		iss := e.issue(ContentEvent, item, "source_url", SeverityWarning, "source URL is not a valid http(s) URL")
		iss.Current = item.SourceURL
		issues = append(issues, iss)
	}
	if strings.TrimSpace(item.Description) == "" && strings.TrimSpace(item.Enhanced) == "" {
		issues = append(issues, e.issue(ContentEvent, item, "description", SeverityInfo, "no description"))
	}
	return issues
}

func (e *Engine) restaurantRules(item Record) []Issue {
	var issues []Issue
	if strings.TrimSpace(item.Cuisine) == "" {
		issues = append(issues, e.issue(ContentRestaurant, item, "cuisine", SeverityWarning, "missing cuisine"))
	}
	if strings.TrimSpace(item.Location) == "" {
		issues = append(issues, e.issue(ContentRestaurant, item, "location", SeverityError, "missing location"))
	}
	if p := strings.TrimSpace(item.Phone); p != "" && !wellFormedPhone(p) {
		iss := e.issue(ContentRestaurant, item, "phone", SeverityError, "phone number is not formatted")
		iss.Current = p
		if fixed := FormatPhone(p); fixed != "" {
			iss.AutoFixable = true
			iss.Suggested = fixed
		}
		issues = append(issues, iss)
	}
	if item.Website != "" && !validHTTPURL(item.Website) {
		iss := e.issue(ContentRestaurant, item, "website", SeverityWarning, "website is not a valid http(s) URL")
		iss.Current = item.Website
		issues = append(issues, iss)
	}
	if strings.TrimSpace(item.Description) == "" {
		issues = append(issues, e.issue(ContentRestaurant, item, "description", SeverityInfo, "no description"))
	}
	return issues
}

func (e *Engine) attractionRules(item Record) []Issue {
	var issues []Issue
	if strings.TrimSpace(item.PlaceType) == "" {
		issues = append(issues, e.issue(ContentAttraction, item, "type", SeverityWarning, "missing attraction type"))
	}
	if strings.TrimSpace(item.Location) == "" {
		issues = append(issues, e.issue(ContentAttraction, item, "location", SeverityError, "missing location"))
	}
	if item.Website != "" && !validHTTPURL(item.Website) {
		iss := e.issue(ContentAttraction, item, "website", SeverityWarning, "website is not a valid http(s) URL")
		iss.Current = item.Website
		issues = append(issues, iss)
	}
	return issues
}

func (e *Engine) playgroundRules(item Record) []Issue {
	var issues []Issue
	if strings.TrimSpace(item.Location) == "" {
		issues = append(issues, e.issue(ContentPlayground, item, "location", SeverityError, "missing location"))
	}
	if len(item.Amenities) == 0 {
		issues = append(issues, e.issue(ContentPlayground, item, "amenities", SeverityInfo, "no amenities listed"))
	}
	return issues
}

func (e *Engine) issue(ct ContentType, item Record, field string, sev Severity, msg string) Issue {
	return Issue{
		ItemID:      item.ID,
		ItemTitle:   item.Title,
		ContentType: ct,
		Field:       field,
		Severity:    sev,
		Message:     msg,
	}
}

// wellFormedPhone accepts the two canonical US formats.
func wellFormedPhone(p string) bool {
	return FormatPhone(p) == p
}

// FormatPhone canonicalizes a US phone number. Ten digits become
// "(XXX) XXX-XXXX", eleven digits with a leading 1 become
// "+1 (XXX) XXX-XXXX". Anything else returns empty: not fixable.
func FormatPhone(raw string) string {
	var digits []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	switch {
	case len(digits) == 10:
		return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10])
	case len(digits) == 11 && digits[0] == '1':
		return fmt.Sprintf("+1 (%s) %s-%s", digits[1:4], digits[4:7], digits[7:11])
	default:
		return ""
	}
}

func validHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
