// internal/extract/links.go

package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkKind classifies how a candidate link was found on the page.
type LinkKind string

const (
	LinkTicket  LinkKind = "ticket_platform"
	LinkBuy     LinkKind = "buy_tickets"
	LinkAction  LinkKind = "action_item"
	LinkWebsite LinkKind = "website"
)

// LinkCandidate is one outbound link found on an aggregator page, tagged
// with the scan strategy that found it. IsTicketPlatform is set when the
// host matches a known ticketing domain regardless of how it was found.
type LinkCandidate struct {
	URL              string
	Kind             LinkKind
	IsTicketPlatform bool
}

// LinkOptions controls link classification. Zero-value lists disable the
// corresponding checks, so callers normally pass their configured domains.
// AggregatorDomains suppress every candidate except ticket-platform links,
// so a fixer run never trades one aggregator listing for another. Ticket
// platforms win that check: "eventbrite.com/e/" pages stay acceptable even
// though the bare domain is on the aggregator list.
type LinkOptions struct {
	TicketPlatforms   []string
	AggregatorDomains []string
	ExcludedDomains   []string
}

// buyPhrases mark anchors that lead to a purchase flow even when the href
// itself is an opaque redirect.
var buyPhrases = []string{
	"buy tickets",
	"get tickets",
	"purchase tickets",
	"tickets",
}

// ExtractLinks scans every anchor on the page and returns candidates in
// cascade order: ticket platform links first, then buy-ticket anchors, then
// action-item anchors, then plain external website links. Excluded domains
// are dropped entirely, and aggregator domains are dropped unless the link
// is also a ticket platform. Deduplication is by absolute URL.
func ExtractLinks(html, pageURL string, opts LinkOptions) []LinkCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(pageURL)

	var tickets, buys, actions, websites []LinkCandidate
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := absoluteURL(base, strings.TrimSpace(href))
		if abs == "" || seen[abs] {
			return
		}
		if matchesDomain(abs, opts.ExcludedDomains) {
			return
		}
		seen[abs] = true

		onTicketPlatform := matchesDomain(abs, opts.TicketPlatforms)
		if !onTicketPlatform && matchesDomain(abs, opts.AggregatorDomains) {
			return
		}
		class, _ := s.Attr("class")
		text := strings.ToLower(strings.TrimSpace(s.Text()))

		switch {
		case onTicketPlatform:
			tickets = append(tickets, LinkCandidate{URL: abs, Kind: LinkTicket, IsTicketPlatform: true})
		case strings.Contains(strings.ToLower(class), "ticket") || isBuyPhrase(text):
			buys = append(buys, LinkCandidate{URL: abs, Kind: LinkBuy})
		case hasActionAncestor(s):
			actions = append(actions, LinkCandidate{URL: abs, Kind: LinkAction})
		case isExternal(base, abs):
			websites = append(websites, LinkCandidate{URL: abs, Kind: LinkWebsite})
		}
	})

	out := make([]LinkCandidate, 0, len(tickets)+len(buys)+len(actions)+len(websites))
	out = append(out, tickets...)
	out = append(out, buys...)
	out = append(out, actions...)
	out = append(out, websites...)
	return out
}

func isBuyPhrase(text string) bool {
	for _, phrase := range buyPhrases {
		if text == phrase {
			return true
		}
	}
	return false
}

// hasActionAncestor reports whether the anchor sits inside an action-item
// container, the call-to-action wrapper aggregator listings use.
func hasActionAncestor(s *goquery.Selection) bool {
	return s.Closest(`[class*=action-item]`).Length() > 0
}

// absoluteURL resolves href against base and keeps only http(s) results.
func absoluteURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// matchesDomain reports whether rawURL's host or path contains any of the
// given domain fragments. Fragments with a path component (for instance
// "eventbrite.com/e/") are matched against host+path.
func matchesDomain(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostPath := strings.ToLower(u.Host + u.Path)
	for _, d := range domains {
		if d == "" {
			continue
		}
		if strings.Contains(hostPath, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// isExternal reports whether abs points at a different host than base.
func isExternal(base *url.URL, abs string) bool {
	if base == nil {
		return true
	}
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	return !strings.EqualFold(u.Host, base.Host)
}
