// internal/ai/client.go

// Package ai calls a hosted LLM to suggest a canonical event URL when page
// scanning comes up empty. The client is deliberately thin: one endpoint,
// one prompt, defensive response parsing.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/citypulse/eventharvest/internal/config"
)

const apiVersion = "2023-06-01"

// Client talks to a messages-style completion endpoint.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	endpoint    string
	model       string
	maxTokens   int
	excerptSize int
}

// NewClient builds a Client from configuration. Callers should check
// cfg.Enabled() first; a client without an API key will only get 401s.
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout.Std()},
		apiKey:      cfg.APIKey,
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		excerptSize: cfg.ExcerptSize,
	}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// SuggestURL asks the model for the event's canonical page. It returns
// empty string when the model answers NONE or produces nothing usable;
// only transport and API failures are errors.
func (c *Client) SuggestURL(ctx context.Context, html, eventName, currentURL string) (string, error) {
	excerpt := html
	if c.excerptSize > 0 && len(excerpt) > c.excerptSize {
		excerpt = excerpt[:c.excerptSize]
	}

	prompt := fmt.Sprintf(`You are given the HTML of an event listing page from an aggregator site.

Event name: %s
Current listing URL: %s

Find the single best direct URL for this event: the official venue or organizer page, or a ticketing page. Do not suggest social media profiles or the aggregator's own pages.

Respond with ONLY the URL, nothing else. If the page contains no suitable URL, respond with exactly: NONE

HTML:
%s`, eventName, currentURL, excerpt)

	body, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling model API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var parsed messageResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("model API error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("model API returned status %d", resp.StatusCode)
	}

	for _, block := range parsed.Content {
		if block.Type != "text" {
			continue
		}
		answer := strings.TrimSpace(block.Text)
		if answer == "" || strings.EqualFold(answer, "NONE") {
			return "", nil
		}
		return answer, nil
	}
	return "", nil
}
