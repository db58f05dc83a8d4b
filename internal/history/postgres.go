package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a Postgres-backed call history repository.
func NewPostgresRepository(pool *pgxpool.Pool, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, logger: logger}
}

// Create inserts a call record.
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO weather_calls (id, operation, lang, attempts, succeeded, from_fallback, last_error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Operation, rec.Lang, rec.Attempts, rec.Succeeded,
		rec.FromFallback, rec.LastError, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call record: %w", err)
	}
	return nil
}

// ListRecent returns the newest records, most recent first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	query := `
		SELECT id, operation, lang, attempts, succeeded, from_fallback, last_error, duration_ms, created_at
		FROM weather_calls ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountByOperation returns record counts grouped by operation.
func (r *PostgresRepository) CountByOperation(ctx context.Context) (map[string]int64, error) {
	query := `SELECT operation, COUNT(*) FROM weather_calls GROUP BY operation`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var operation string
		var count int64
		if err := rows.Scan(&operation, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[operation] = count
	}
	return counts, rows.Err()
}

func scanRecords(rows pgx.Rows) ([]*Record, error) {
	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(
			&rec.ID, &rec.Operation, &rec.Lang, &rec.Attempts, &rec.Succeeded,
			&rec.FromFallback, &rec.LastError, &rec.DurationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
