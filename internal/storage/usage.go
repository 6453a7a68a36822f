package storage

import (
	"context"
	"fmt"
	"time"
)

// DateLayout is the calendar-day key used by usage records.
const DateLayout = "2006-01-02"

// IncrementUsage atomically adds one request, tokens and cost to the record
// for (date, model), creating it if needed.
func (s *SQLiteStorage) IncrementUsage(ctx context.Context, date, model string, tokens int, cost float64) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (date, model, request_count, tokens_used, estimated_cost)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(date, model) DO UPDATE SET
			request_count = request_count + 1,
			tokens_used = tokens_used + excluded.tokens_used,
			estimated_cost = estimated_cost + excluded.estimated_cost
	`, date, model, tokens, cost)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}

	return nil
}

// DailySpend returns the total estimated cost recorded for date across all models.
func (s *SQLiteStorage) DailySpend(ctx context.Context, date string) (float64, error) {
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	var spend float64
	row := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(estimated_cost), 0) FROM usage_records WHERE date = ?", date)
	if err := row.Scan(&spend); err != nil {
		return 0, fmt.Errorf("failed to read daily spend: %w", err)
	}

	return spend, nil
}

// UsageForDate returns the per-model records for date, ordered by model.
func (s *SQLiteStorage) UsageForDate(ctx context.Context, date string) ([]UsageRecord, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, model, request_count, tokens_used, estimated_cost
		FROM usage_records
		WHERE date = ?
		ORDER BY model
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var r UsageRecord
		if err := rows.Scan(&r.Date, &r.Model, &r.RequestCount, &r.TokensUsed, &r.EstimatedCost); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Cleanup removes usage records older than retention and expired cache entries.
// It returns the number of usage rows and cache entries removed.
func (s *SQLiteStorage) Cleanup(ctx context.Context, retention time.Duration) (usageRows, cacheRows int, err error) {
	now := time.Now()
	cutoff := now.Add(-retention).Format(DateLayout)

	if err := s.lock(); err != nil {
		return 0, 0, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM usage_records WHERE date < ?", cutoff)
	s.mu.Unlock()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to cleanup usage records: %w", err)
	}
	n, _ := res.RowsAffected()

	purged, err := s.PurgeExpired(ctx, now)
	if err != nil {
		return int(n), 0, err
	}

	return int(n), purged, nil
}
