// Package weather binds upstream operations to retry policies and shapes
// the proxy's API responses.
package weather

import (
	"encoding/json"
	"time"
)

// Operation names understood by the service.
const (
	OpCurrent  = "current"
	OpForecast = "forecast"
)

// RetryInfo summarizes the retry behavior applied to a single call.
type RetryInfo struct {
	TotalAttempts int  `json:"total_attempts"`
	RetryEnabled  bool `json:"retry_enabled"`
	MaxRetries    int  `json:"max_retries"`
}

// Envelope is the response shape returned to API consumers. Data carries
// the upstream payload untouched.
type Envelope struct {
	Data         json.RawMessage `json:"data,omitempty"`
	DataType     string          `json:"data_type"`
	Lang         string          `json:"lang"`
	FetchedAt    time.Time       `json:"fetched_at"`
	FromFallback bool            `json:"from_fallback"`
	Error        string          `json:"error,omitempty"`
	RetryInfo    RetryInfo       `json:"retry_info"`
}
