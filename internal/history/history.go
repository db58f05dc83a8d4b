// Package history records proxied upstream calls for later inspection.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one proxied upstream call, terminal outcome included.
type Record struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Operation    string    `json:"operation" db:"operation"`
	Lang         string    `json:"lang" db:"lang"`
	Attempts     int       `json:"attempts" db:"attempts"`
	Succeeded    bool      `json:"succeeded" db:"succeeded"`
	FromFallback bool      `json:"from_fallback" db:"from_fallback"`
	LastError    string    `json:"last_error,omitempty" db:"last_error"`
	DurationMs   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewRecord creates a record for a finished call.
func NewRecord(operation, lang string, attempts int, succeeded, fromFallback bool, lastError string, duration time.Duration) *Record {
	return &Record{
		ID:           uuid.New(),
		Operation:    operation,
		Lang:         lang,
		Attempts:     attempts,
		Succeeded:    succeeded,
		FromFallback: fromFallback,
		LastError:    lastError,
		DurationMs:   duration.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
}

// Repository persists call records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
	CountByOperation(ctx context.Context) (map[string]int64, error)
}
