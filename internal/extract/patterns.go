// internal/extract/patterns.go

package extract

import "regexp"

// datePatterns match human-written calendar dates, most specific first.
var datePatterns = []*regexp.Regexp{
	// Long month names: "March 15, 2026", "March 15 2026"
	regexp.MustCompile(`(?i)(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`),
	// Abbreviated month names: "Mar 15, 2026", "Mar. 15 2026"
	regexp.MustCompile(`(?i)(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\.?\s+\d{1,2},?\s+\d{4}`),
	// Numeric US dates: "3/15/2026"
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`),
	// ISO dates: "2026-03-15"
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
}

// timePatterns match clock times, most specific first. The labeled forms
// ("Doors at 7 PM", "Show 8:30pm") cover the common venue page phrasing.
var timePatterns = []*regexp.Regexp{
	// Labeled times: "Doors at 7:00 PM", "Show 8pm", "Event at 6:30 pm"
	regexp.MustCompile(`(?i)(?:doors|show|event)(?:\s+at)?\s+\d{1,2}(?::\d{2})?\s*(?:AM|PM)`),
	// "7:30 PM", "11:00am"
	regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(?:AM|PM)`),
	// "7 PM", "11am"
	regexp.MustCompile(`(?i)\b\d{1,2}\s*(?:AM|PM)\b`),
}
