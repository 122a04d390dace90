// internal/fetch/client.go
package fetch

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/citypulse/eventharvest/internal/config"
)

// Client is the plain-HTTP page fetcher used for server-rendered pages such
// as aggregator listings. JS-rendered pages go through BrowserSession instead.
type Client struct {
	httpClient    *http.Client
	userAgents    []string
	currentUA     int
	uaMu          sync.Mutex
	rateLimiter   *rate.Limiter
	retryAttempts int
	retryDelay    time.Duration
	headers       map[string]string
}

// NewClient creates an HTTP fetcher from configuration, applying defaults for
// any unset values.
func NewClient(cfg config.FetchConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = config.DefaultFetchTimeout
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = config.DefaultRetryAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = config.DefaultRetryDelay
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = config.DefaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = config.DefaultRateBurst
	}
	agents := cfg.UserAgents
	if len(agents) == 0 {
		agents = defaultUserAgents()
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout.Std(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		httpClient:    httpClient,
		userAgents:    agents,
		rateLimiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay.Std(),
		headers:       cfg.Headers,
	}
}

// Fetch retrieves the HTML of a URL with retry and rate limiting. Non-2xx
// responses, network failures, and timeouts all surface as *FetchError.
func (c *Client) Fetch(ctx context.Context, targetURL string) (*RawPage, error) {
	if _, err := url.ParseRequestURI(targetURL); err != nil {
		return nil, &FetchError{URL: targetURL, Kind: KindNetwork, Err: err}
	}

	var lastErr error

	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: targetURL, Kind: KindNetwork, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
		if err != nil {
			return nil, &FetchError{URL: targetURL, Kind: KindNetwork, Err: err}
		}
		c.setRequestHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			kind := KindNetwork
			if isTimeout(err) {
				kind = KindTimeout
			}
			lastErr = &FetchError{URL: targetURL, Kind: kind, Err: err}
			if attempt < c.retryAttempts {
				c.waitForRetry(ctx, attempt)
				continue
			}
			break
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = &FetchError{URL: targetURL, Kind: KindNetwork, Err: readErr}
				if attempt < c.retryAttempts {
					c.waitForRetry(ctx, attempt)
					continue
				}
				break
			}
			return &RawPage{
				URL:        targetURL,
				HTML:       string(body),
				StatusCode: resp.StatusCode,
				FetchedAt:  time.Now(),
			}, nil
		}

		resp.Body.Close()
		lastErr = &FetchError{URL: targetURL, Kind: KindStatus, StatusCode: resp.StatusCode}

		if !shouldRetryStatusCode(resp.StatusCode) {
			break
		}
		if attempt < c.retryAttempts {
			c.waitForRetry(ctx, attempt)
		}
	}

	return nil, lastErr
}

// setRequestHeaders configures browser-like request headers including user
// agent rotation.
func (c *Client) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}

// nextUserAgent returns the next user agent in rotation.
func (c *Client) nextUserAgent() string {
	c.uaMu.Lock()
	defer c.uaMu.Unlock()

	ua := c.userAgents[c.currentUA]
	c.currentUA = (c.currentUA + 1) % len(c.userAgents)
	return ua
}

// waitForRetry sleeps with exponential backoff and jitter, aborting early if
// the context is cancelled.
func (c *Client) waitForRetry(ctx context.Context, attempt int) {
	backoff := c.retryDelay * time.Duration(1<<uint(attempt))
	jitter := time.Duration(rand.Int63n(int64(backoff/2) + 1))
	total := backoff + jitter
	if total > 30*time.Second {
		total = 30 * time.Second
	}

	select {
	case <-ctx.Done():
	case <-time.After(total):
	}
}

// shouldRetryStatusCode determines if a status code warrants a retry.
func shouldRetryStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		520, 521, 522, 523, 524: // CloudFlare errors
		return true
	}
	return false
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
