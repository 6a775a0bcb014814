package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS post_log (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		product TEXT NOT NULL,
		platform TEXT NOT NULL,
		poster TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 1,
		category TEXT,
		error TEXT,
		posted_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_post_log_posted_at ON post_log(posted_at);`,
	`CREATE INDEX IF NOT EXISTS idx_post_log_product ON post_log(product);`,
	`CREATE TABLE IF NOT EXISTS rate_limit_calls (
		service TEXT NOT NULL,
		called_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_rate_limit_calls_service ON rate_limit_calls(service, called_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	return nil
}
