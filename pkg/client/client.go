// Package client provides a Go SDK for the weather proxy API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client communicates with the weather proxy API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new weather proxy client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RetryInfo summarizes the retry behavior applied to a call.
type RetryInfo struct {
	TotalAttempts int  `json:"total_attempts"`
	RetryEnabled  bool `json:"retry_enabled"`
	MaxRetries    int  `json:"max_retries"`
}

// Envelope is the proxy's response shape for weather operations.
type Envelope struct {
	Data         json.RawMessage `json:"data"`
	DataType     string          `json:"data_type"`
	Lang         string          `json:"lang"`
	FetchedAt    time.Time       `json:"fetched_at"`
	FromFallback bool            `json:"from_fallback"`
	Error        string          `json:"error,omitempty"`
	RetryInfo    RetryInfo       `json:"retry_info"`
}

// Stats is the proxy's statistics snapshot.
type Stats struct {
	TotalAttempts           int64      `json:"total_attempts"`
	SuccessfulCalls         int64      `json:"successful_calls"`
	FailedCalls             int64      `json:"failed_calls"`
	RetriedCalls            int64      `json:"retried_calls"`
	SimulatedFailureRate    float64    `json:"simulated_failure_rate"`
	SimulateFailuresEnabled bool       `json:"simulate_failures_enabled"`
	LastCallAt              *time.Time `json:"last_call_at,omitempty"`
}

// CurrentWeather fetches the current weather envelope. A fallback
// (degraded) response is returned alongside a nil error; callers check
// Envelope.FromFallback.
func (c *Client) CurrentWeather(ctx context.Context, lang string) (*Envelope, error) {
	return c.getEnvelope(ctx, "/api/v1/weather/current", lang)
}

// Forecast fetches the forecast envelope.
func (c *Client) Forecast(ctx context.Context, lang string) (*Envelope, error) {
	return c.getEnvelope(ctx, "/api/v1/weather/forecast", lang)
}

func (c *Client) getEnvelope(ctx context.Context, path, lang string) (*Envelope, error) {
	u := fmt.Sprintf("%s%s?lang=%s", c.baseURL, path, url.QueryEscape(lang))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// 503 carries a fallback-flagged envelope, not a bare error.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Stats fetches the current statistics snapshot.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var s Stats
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &s, nil
}

// ResetStats zeroes the proxy's statistics counters and returns the
// post-reset snapshot.
func (c *Client) ResetStats(ctx context.Context) (*Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/stats/reset", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var s Stats
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &s, nil
}
