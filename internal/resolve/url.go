// internal/resolve/url.go

package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/extract"
)

// AISuggester proposes a canonical event URL when page scanning finds
// nothing. Implementations return empty string when no good suggestion
// exists; that is not an error.
type AISuggester interface {
	SuggestURL(ctx context.Context, html, eventName, currentURL string) (string, error)
}

// URLResolution is the outcome of resolving one event's source URL.
type URLResolution struct {
	URL        string
	Kind       extract.LinkKind
	Confidence Confidence
	FromAI     bool
}

// URLResolver finds the canonical (non-aggregator) URL for an event page.
// The AI suggester is optional; without one the resolver stops after the
// link cascade.
type URLResolver struct {
	aggregators []string
	linkOpts    extract.LinkOptions
	ai          AISuggester
}

// NewURLResolver builds a URLResolver from configuration.
func NewURLResolver(cfg config.ResolveConfig, ai AISuggester) *URLResolver {
	return &URLResolver{
		aggregators: cfg.AggregatorDomains,
		linkOpts: extract.LinkOptions{
			TicketPlatforms:   cfg.TicketPlatforms,
			AggregatorDomains: cfg.AggregatorDomains,
			ExcludedDomains:   cfg.ExcludedDomains,
		},
		ai: ai,
	}
}

// IsAggregator reports whether rawURL points at a known event aggregator.
// Only aggregator URLs are candidates for replacement; everything else is
// already canonical.
func (r *URLResolver) IsAggregator(rawURL string) bool {
	return matchesAny(rawURL, r.aggregators)
}

// matchesAny reports whether rawURL's host+path contains any of the given
// domain fragments.
func matchesAny(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostPath := strings.ToLower(u.Host + u.Path)
	for _, d := range domains {
		if d != "" && strings.Contains(hostPath, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// Resolve scans the aggregator page for a better URL. Returns false when
// the current URL should be kept: the page is not an aggregator, no
// candidate was found, or the best candidate is the current URL itself.
func (r *URLResolver) Resolve(ctx context.Context, html, currentURL, eventName string) (*URLResolution, bool, error) {
	if !r.IsAggregator(currentURL) {
		return nil, false, nil
	}

	links := extract.ExtractLinks(html, currentURL, r.linkOpts)
	if len(links) > 0 {
		best := links[0]
		if sameURL(best.URL, currentURL) {
			return nil, false, nil
		}
		conf := ConfidenceMedium
		if best.IsTicketPlatform {
			conf = ConfidenceHigh
		}
		return &URLResolution{URL: best.URL, Kind: best.Kind, Confidence: conf}, true, nil
	}

	if r.ai == nil {
		return nil, false, nil
	}
	suggested, err := r.ai.SuggestURL(ctx, html, eventName, currentURL)
	if err != nil {
		return nil, false, fmt.Errorf("ai url suggestion: %w", err)
	}
	suggested = strings.TrimSpace(suggested)
	if !usableSuggestion(suggested) || sameURL(suggested, currentURL) {
		return nil, false, nil
	}
	if r.excluded(suggested) {
		return nil, false, nil
	}
	if r.IsAggregator(suggested) && !matchesAny(suggested, r.linkOpts.TicketPlatforms) {
		return nil, false, nil
	}
	return &URLResolution{
		URL:        suggested,
		Kind:       extract.LinkWebsite,
		Confidence: ConfidenceMedium,
		FromAI:     true,
	}, true, nil
}

// excluded reports whether the URL lands on a domain the resolver never
// accepts, social profiles mostly. The model occasionally suggests them
// when the page has nothing better.
func (r *URLResolver) excluded(rawURL string) bool {
	return matchesAny(rawURL, r.linkOpts.ExcludedDomains)
}

// usableSuggestion filters the model's refusal token and anything that is
// not an absolute http(s) URL.
func usableSuggestion(s string) bool {
	if s == "" || strings.EqualFold(s, "NONE") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// sameURL compares two URLs ignoring scheme case and a trailing slash.
func sameURL(a, b string) bool {
	norm := func(s string) string {
		s = strings.TrimSuffix(strings.TrimSpace(s), "/")
		return strings.ToLower(s)
	}
	return norm(a) == norm(b)
}
