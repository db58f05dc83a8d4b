// Package upstream implements the client for the third-party weather
// provider. Payloads are opaque JSON; the proxy never interprets them.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Fetcher retrieves weather payloads from the upstream provider.
type Fetcher interface {
	FetchCurrent(ctx context.Context, lang string) (json.RawMessage, error)
	FetchForecast(ctx context.Context, lang string) (json.RawMessage, error)
}

// Client calls the provider's JSON endpoints over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an upstream client. timeout bounds the full HTTP
// exchange of one request; per-attempt deadlines on top of it come from
// the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchCurrent retrieves the current weather payload.
func (c *Client) FetchCurrent(ctx context.Context, lang string) (json.RawMessage, error) {
	return c.fetch(ctx, "current", lang)
}

// FetchForecast retrieves the forecast payload.
func (c *Client) FetchForecast(ctx context.Context, lang string) (json.RawMessage, error) {
	return c.fetch(ctx, "forecast", lang)
}

func (c *Client) fetch(ctx context.Context, operation, lang string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/v1/%s?lang=%s", c.baseURL, operation, url.QueryEscape(lang))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream returned invalid json")
	}

	c.logger.Debug("upstream fetch",
		zap.String("operation", operation),
		zap.String("lang", lang),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}
