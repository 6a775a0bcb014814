package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/reelkit/reelkit/internal/content"
)

// Poster publishes one content item.
type Poster interface {
	Post(ctx context.Context, item content.Item) error
	Name() string
}

// LogPoster writes items to W instead of publishing them.
type LogPoster struct {
	mu sync.Mutex
	W  io.Writer
}

// NewLogPoster returns a dry-run poster writing to w.
func NewLogPoster(w io.Writer) *LogPoster {
	return &LogPoster{W: w}
}

func (p *LogPoster) Name() string { return "log" }

func (p *LogPoster) Post(ctx context.Context, item content.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.W == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.W, "[%s] %s\n  caption: %s\n  hashtags: %s\n",
		item.Platform, item.Label(), item.Caption, formatHashtags(item.Hashtags))
	return err
}

// WebhookPoster POSTs each item as JSON to URL.
type WebhookPoster struct {
	URL        string
	HTTPClient *http.Client
	Headers    map[string]string
}

// NewWebhookPoster returns a poster with a 15s client timeout.
func NewWebhookPoster(url string) *WebhookPoster {
	return &WebhookPoster{
		URL:        strings.TrimSpace(url),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *WebhookPoster) Name() string { return "webhook" }

// WebhookError reports a non-2xx webhook response.
type WebhookError struct {
	Status int
	Body   string
}

func (e *WebhookError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned %d", e.Status)
	}
	return fmt.Sprintf("webhook returned %d: %s", e.Status, e.Body)
}

// StatusCode exposes the HTTP status for error classification.
func (e *WebhookError) StatusCode() int { return e.Status }

type webhookPayload struct {
	Event  string       `json:"event"`
	Item   content.Item `json:"item"`
	SentAt time.Time    `json:"sent_at"`
}

func (p *WebhookPoster) Post(ctx context.Context, item content.Item) error {
	if p == nil || p.URL == "" {
		return errors.New("webhook url is required")
	}

	body, err := json.Marshal(webhookPayload{Event: "post", Item: item, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range p.Headers {
		req.Header.Set(key, value)
	}

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &WebhookError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatHashtags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = "#" + tag
	}
	return strings.Join(out, " ")
}
