// internal/resolve/url_test.go

package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/extract"
)

type stubSuggester struct {
	url string
	err error
}

func (s *stubSuggester) SuggestURL(_ context.Context, _, _, _ string) (string, error) {
	return s.url, s.err
}

func testResolveConfig() config.ResolveConfig {
	return config.ResolveConfig{
		AggregatorDomains: []string{"catchdesmoines.com", "eventbrite.com", "meetup.com"},
		TicketPlatforms:   []string{"ticketmaster.com", "stubhub.com", "eventbrite.com/e/"},
		ExcludedDomains:   []string{"facebook.com", "twitter.com", "instagram.com"},
	}
}

func TestIsAggregator(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.catchdesmoines.com/event/jazz-night/12345/", true},
		{"https://www.eventbrite.com/e/show-tickets-99", true},
		{"https://www.ticketmaster.com/event/abc", false},
		{"https://venue.example.com/calendar", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		if got := r.IsAggregator(tt.url); got != tt.want {
			t.Errorf("IsAggregator(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestResolvePrefersTicketPlatformLink(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), nil)
	html := `<html><body>
		<a href="https://venue.example.com">Venue site</a>
		<a href="https://www.stubhub.com/event/123">Tickets</a>
	</body></html>`

	res, ok, err := r.Resolve(context.Background(), html,
		"https://www.catchdesmoines.com/event/show/1/", "Big Show")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ok {
		t.Fatal("expected a resolution")
	}
	if res.URL != "https://www.stubhub.com/event/123" {
		t.Errorf("url = %q", res.URL)
	}
	if res.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", res.Confidence)
	}
	if res.FromAI {
		t.Error("resolution should not be marked as AI-derived")
	}
}

func TestResolveNeverProposesAnotherAggregator(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), nil)
	html := `<html><body>
		<a href="https://www.meetup.com/des-moines-jazz/events/123/">Official Website</a>
	</body></html>`

	_, ok, err := r.Resolve(context.Background(), html,
		"https://www.catchdesmoines.com/event/jazz-night/1/", "Jazz Night")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Error("an aggregator URL must not be replaced with another aggregator")
	}
}

func TestResolveAcceptsDirectEventbritePage(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), nil)
	html := `<a href="https://www.eventbrite.com/e/jazz-night-tickets-123">Get Tickets</a>`

	res, ok, err := r.Resolve(context.Background(), html,
		"https://www.catchdesmoines.com/event/jazz-night/1/", "Jazz Night")
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if res.URL != "https://www.eventbrite.com/e/jazz-night-tickets-123" {
		t.Errorf("url = %q", res.URL)
	}
	if res.Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, want high", res.Confidence)
	}
}

func TestResolveNonAggregatorIsNoop(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), &stubSuggester{url: "https://anything.example.com"})
	_, ok, err := r.Resolve(context.Background(), "<html></html>",
		"https://www.ticketmaster.com/event/abc", "Show")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Error("ticket platform URL must not be replaced")
	}
}

func TestResolveSameURLSuppressed(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), nil)
	html := `<a class="ticket-btn" href="https://www.catchdesmoines.com/event/show/1">Buy Tickets</a>`
	_, ok, err := r.Resolve(context.Background(), html,
		"https://www.catchdesmoines.com/event/show/1/", "Show")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Error("resolving to the current URL must be a no-op")
	}
}

func TestResolveAIFallback(t *testing.T) {
	tests := []struct {
		name      string
		suggested string
		wantOK    bool
		wantURL   string
	}{
		{"good suggestion", "https://venue.example.com/events/show", true, "https://venue.example.com/events/show"},
		{"refusal token", "NONE", false, ""},
		{"social profile rejected", "https://www.facebook.com/venue", false, ""},
		{"aggregator rejected", "https://www.meetup.com/des-moines-jazz/events/123/", false, ""},
		{"direct eventbrite page accepted", "https://www.eventbrite.com/e/show-tickets-99", true, "https://www.eventbrite.com/e/show-tickets-99"},
		{"relative junk rejected", "events/show", false, ""},
		{"empty", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewURLResolver(testResolveConfig(), &stubSuggester{url: tt.suggested})
			res, ok, err := r.Resolve(context.Background(), "<html><body>no links</body></html>",
				"https://www.catchdesmoines.com/event/show/1/", "Show")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok {
				if res.URL != tt.wantURL {
					t.Errorf("url = %q, want %q", res.URL, tt.wantURL)
				}
				if !res.FromAI {
					t.Error("expected FromAI to be set")
				}
			}
		})
	}
}

func TestResolveAIError(t *testing.T) {
	wantErr := errors.New("api unavailable")
	r := NewURLResolver(testResolveConfig(), &stubSuggester{err: wantErr})
	_, ok, err := r.Resolve(context.Background(), "<html></html>",
		"https://www.catchdesmoines.com/event/show/1/", "Show")
	if ok {
		t.Error("error must not yield a resolution")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestResolveWithoutAIStopsAfterScan(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), nil)
	_, ok, err := r.Resolve(context.Background(), "<html><body>no links</body></html>",
		"https://www.catchdesmoines.com/event/show/1/", "Show")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ok {
		t.Error("expected no resolution without a suggester")
	}
}

func TestLinkKindPropagated(t *testing.T) {
	r := NewURLResolver(testResolveConfig(), nil)
	html := `<div class="action-item"><a href="https://venue.org/show">Details</a></div>`
	res, ok, err := r.Resolve(context.Background(), html,
		"https://www.catchdesmoines.com/event/show/1/", "Show")
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if res.Kind != extract.LinkAction {
		t.Errorf("kind = %q, want %q", res.Kind, extract.LinkAction)
	}
	if res.Confidence != ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", res.Confidence)
	}
}
