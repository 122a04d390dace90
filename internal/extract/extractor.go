// internal/extract/extractor.go

// Package extract turns raw HTML into bags of untyped candidate signals.
// Extraction is a pure function of the page text: no network access, no
// ranking, no deduplication. Choosing among candidates is the resolver's job.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy identifies which extraction strategy produced a candidate.
type Strategy string

const (
	StrategySchema   Strategy = "structured_data"
	StrategyPattern  Strategy = "pattern"
	StrategySelector Strategy = "selector"
)

// DateCandidate is a raw date string found on the page.
type DateCandidate struct {
	Raw      string
	Strategy Strategy
}

// TimeCandidate is a raw time-of-day string found on the page.
type TimeCandidate struct {
	Raw      string
	Strategy Strategy
}

// SchemaCandidate holds the event fields of one JSON-LD block.
type SchemaCandidate struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Name      string `json:"name"`
}

// Candidates is the unordered bag of signals extracted from one page.
// Within each kind, candidates appear in strategy priority order (structured
// data blocks in document order, then pattern matches in pattern order, then
// selector probe hits).
type Candidates struct {
	Dates   []DateCandidate
	Times   []TimeCandidate
	Schemas []SchemaCandidate
	Text    []string
}

// commonSelectors are CSS probes used by mainstream event platforms for
// date/time markup.
var commonSelectors = []string{
	".event-date",
	".event-time",
	".date",
	".time",
	"[class*=date]",
	"[class*=time]",
	".datetime",
	".event-datetime",
	"time[datetime]",
	"[datetime]",
}

// Extract applies the full strategy cascade to an HTML document. A parse
// failure of any single JSON-LD block never aborts the others.
func Extract(html string) *Candidates {
	result := &Candidates{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable markup still gets the regex pass over raw text.
		result.applyPatterns(html)
		return result
	}

	// Strategy 1: JSON-LD structured data.
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		for _, schema := range parseSchemaBlock(s.Text()) {
			result.Schemas = append(result.Schemas, schema)
		}
	})

	// Strategy 2: date/time patterns over the page's visible text.
	result.applyPatterns(doc.Find("body").Text())

	// Strategy 3: selector probing. Both text content and the datetime
	// attribute, when present, are kept.
	seen := make(map[string]bool)
	for _, selector := range commonSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" && !seen[text] {
				seen[text] = true
				result.Text = append(result.Text, text)
			}
			if dt, ok := s.Attr("datetime"); ok {
				dt = strings.TrimSpace(dt)
				if dt != "" && !seen[dt] {
					seen[dt] = true
					result.Text = append(result.Text, dt)
				}
			}
		})
	}

	return result
}

// applyPatterns collects all date and time regex matches over text, tagging
// each with the pattern strategy.
func (c *Candidates) applyPatterns(text string) {
	for _, pattern := range datePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			c.Dates = append(c.Dates, DateCandidate{Raw: match, Strategy: StrategyPattern})
		}
	}
	for _, pattern := range timePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			c.Times = append(c.Times, TimeCandidate{Raw: match, Strategy: StrategyPattern})
		}
	}
}

// parseSchemaBlock parses one JSON-LD script body. It keeps any object whose
// @type is Event or that carries a startDate, including objects nested in a
// top-level array or @graph. Malformed JSON yields nothing.
func parseSchemaBlock(raw string) []SchemaCandidate {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var node interface{}
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		return nil
	}

	var out []SchemaCandidate
	collectSchemas(node, &out)
	return out
}

func collectSchemas(node interface{}, out *[]SchemaCandidate) {
	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			collectSchemas(item, out)
		}
	case map[string]interface{}:
		typ, _ := v["@type"].(string)
		start, _ := v["startDate"].(string)
		if typ == "Event" || start != "" {
			end, _ := v["endDate"].(string)
			name, _ := v["name"].(string)
			*out = append(*out, SchemaCandidate{StartDate: start, EndDate: end, Name: name})
		}
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				collectSchemas(item, out)
			}
		}
	}
}
