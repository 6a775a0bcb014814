package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Post statuses.
const (
	StatusPosted = "posted"
	StatusFailed = "failed"
)

// Post is one scheduler outcome.
type Post struct {
	ID       string    `json:"id"`
	ItemID   string    `json:"item_id"`
	Product  string    `json:"product"`
	Platform string    `json:"platform"`
	Poster   string    `json:"poster"`
	Status   string    `json:"status"`
	Attempts int       `json:"attempts"`
	Category string    `json:"category,omitempty"`
	Error    string    `json:"error,omitempty"`
	PostedAt time.Time `json:"posted_at"`
}

// PostQuery selects post log rows.
type PostQuery struct {
	All     bool
	Status  string
	Product string
}

// Validate requires an explicit selection so resets never match everything by accident.
func (q PostQuery) Validate() error {
	if q.All {
		return nil
	}
	if strings.TrimSpace(q.Status) != "" {
		return nil
	}
	if strings.TrimSpace(q.Product) != "" {
		return nil
	}
	return errors.New("must specify --all, --status, or --product")
}

func (q PostQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}

	var (
		clauses []string
		args    []any
	)
	if status := strings.TrimSpace(q.Status); status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}
	if product := strings.TrimSpace(q.Product); product != "" {
		clauses = append(clauses, "product = ?")
		args = append(args, product)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

// RecordPost inserts p, filling ID and PostedAt when empty.
func (s *Store) RecordPost(ctx context.Context, p Post) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now().UTC()
	}
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Status != StatusPosted && p.Status != StatusFailed {
		return fmt.Errorf("invalid post status: %q", p.Status)
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO post_log (id, item_id, product, platform, poster, status, attempts, category, error, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.ItemID, p.Product, p.Platform, p.Poster, p.Status, p.Attempts,
		nullString(p.Category), nullString(p.Error), p.PostedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record post: %w", err)
	}
	return nil
}

// ListPosts returns matching posts, newest first. limit <= 0 means no limit.
func (s *Store) ListPosts(ctx context.Context, q PostQuery, limit int) ([]Post, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, item_id, product, platform, poster, status, attempts, category, error, posted_at
		FROM post_log
		%s
		ORDER BY posted_at DESC, id
	`, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	posts := []Post{}
	for rows.Next() {
		var (
			p        Post
			category sql.NullString
			errText  sql.NullString
			postedAt int64
		)
		if err := rows.Scan(&p.ID, &p.ItemID, &p.Product, &p.Platform, &p.Poster, &p.Status,
			&p.Attempts, &category, &errText, &postedAt); err != nil {
			return nil, fmt.Errorf("scan posts: %w", err)
		}
		p.Category = category.String
		p.Error = errText.String
		p.PostedAt = time.UnixMilli(postedAt).UTC()
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// CountPosts returns the number of matching posts.
func (s *Store) CountPosts(ctx context.Context, q PostQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	var count int
	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM post_log %s`, where), args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// ResetPosts deletes matching posts and returns how many were removed.
func (s *Store) ResetPosts(ctx context.Context, q PostQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM post_log %s`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset posts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset posts: %w", err)
	}
	return affected, nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
