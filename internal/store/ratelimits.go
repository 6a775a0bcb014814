package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RateLimitHistory is the persisted call log for one limiter service.
type RateLimitHistory struct {
	Service string      `json:"service"`
	Calls   []time.Time `json:"calls"`
}

// SaveRateLimitHistory replaces the stored calls for service.
func (s *Store) SaveRateLimitHistory(ctx context.Context, service string, calls []time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service is required")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rate limit save: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_limit_calls WHERE service = ?`, service); err != nil {
		return fmt.Errorf("clear rate limit calls: %w", err)
	}
	for _, at := range calls {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rate_limit_calls (service, called_at) VALUES (?, ?)`,
			service, at.UTC().UnixNano()); err != nil {
			return fmt.Errorf("store rate limit call: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rate limit save: %w", err)
	}
	return nil
}

// LoadRateLimitHistory returns every stored call log, ordered by service.
func (s *Store) LoadRateLimitHistory(ctx context.Context) ([]RateLimitHistory, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT service, called_at
		FROM rate_limit_calls
		ORDER BY service, called_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list rate limit calls: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	byService := map[string][]time.Time{}
	for rows.Next() {
		var (
			service  string
			calledAt int64
		)
		if err := rows.Scan(&service, &calledAt); err != nil {
			return nil, fmt.Errorf("scan rate limit calls: %w", err)
		}
		byService[service] = append(byService[service], time.Unix(0, calledAt).UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate limit calls: %w", err)
	}

	out := make([]RateLimitHistory, 0, len(byService))
	for service, calls := range byService {
		out = append(out, RateLimitHistory{Service: service, Calls: calls})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

// ResetRateLimits deletes stored calls for service, or for every service when
// service is empty. It returns the number of deleted rows.
func (s *Store) ResetRateLimits(ctx context.Context, service string) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	query, args := `DELETE FROM rate_limit_calls`, []any{}
	if service = strings.TrimSpace(service); service != "" {
		query += ` WHERE service = ?`
		args = append(args, service)
	}
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rate limit reset count: %w", err)
	}
	return deleted, nil
}
