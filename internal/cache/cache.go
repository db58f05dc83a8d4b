// Package cache stores the last successful upstream payload per operation
// so exhausted calls can serve a degraded fallback response.
package cache

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrMiss is returned when no payload is stored for the requested key.
var ErrMiss = errors.New("cache miss")

// Cache is the last-good payload store.
type Cache interface {
	// Put stores the payload for (operation, lang), replacing any
	// previous value.
	Put(ctx context.Context, operation, lang string, payload json.RawMessage) error

	// Get returns the stored payload for (operation, lang), or ErrMiss.
	Get(ctx context.Context, operation, lang string) (json.RawMessage, error)
}
