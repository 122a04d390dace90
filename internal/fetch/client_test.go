// internal/fetch/client_test.go
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/citypulse/eventharvest/internal/config"
)

func fastConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:       config.Duration(5 * time.Second),
		RetryAttempts: 2,
		RetryDelay:    config.Duration(time.Millisecond),
		RateLimit:     1000,
		RateBurst:     10,
	}
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	page, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("status = %d", page.StatusCode)
	}
	if page.HTML != "<html><body>hello</body></html>" {
		t.Errorf("html = %q", page.HTML)
	}
	if page.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	page, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.HTML != "ok" {
		t.Errorf("html = %q", page.HTML)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	_, err := c.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	fe, ok := IsFetchError(err)
	if !ok {
		t.Fatalf("err = %T, want *FetchError", err)
	}
	if fe.Kind != KindStatus || fe.StatusCode != http.StatusNotFound {
		t.Errorf("fetch error = %+v", fe)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, 404 must not be retried", got)
	}
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(fastConfig())
	_, err := c.Fetch(context.Background(), srv.URL)
	fe, ok := IsFetchError(err)
	if !ok {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", fe.StatusCode)
	}
	// Initial attempt plus two retries.
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	c := NewClient(fastConfig())
	_, err := c.Fetch(context.Background(), "not a url")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := IsFetchError(err); !ok {
		t.Errorf("err = %T, want *FetchError", err)
	}
}

func TestFetchContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(fastConfig())
	if _, err := c.Fetch(ctx, srv.URL); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestUserAgentRotation(t *testing.T) {
	c := NewClient(config.FetchConfig{
		UserAgents: []string{"ua-one", "ua-two"},
		RateLimit:  1000,
	})
	first := c.nextUserAgent()
	second := c.nextUserAgent()
	third := c.nextUserAgent()
	if first != "ua-one" || second != "ua-two" || third != "ua-one" {
		t.Errorf("rotation = %q, %q, %q", first, second, third)
	}
}

func TestShouldRetryStatusCode(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504, 520, 524}
	for _, code := range retryable {
		if !shouldRetryStatusCode(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		if shouldRetryStatusCode(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	fe := &FetchError{URL: "https://x.example.com", Kind: KindNetwork, Err: inner}
	if !errors.Is(fe, inner) {
		t.Error("FetchError must unwrap to the inner error")
	}
}
