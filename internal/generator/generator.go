// Package generator turns a product into a batch of video scripts using an AI driver.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/reelkit/reelkit/internal/ailink/driver"
	"github.com/reelkit/reelkit/internal/catalog"
	"github.com/reelkit/reelkit/internal/content"
	"github.com/reelkit/reelkit/internal/prompt"
	"github.com/reelkit/reelkit/internal/retry"
)

const (
	// DefaultService is the rate-limit and retry service name for completions.
	DefaultService = "openai"
	DefaultCount   = 3
	maxCount       = 20
	rawLimit       = 2048
)

// Generator produces content batches.
type Generator struct {
	Driver  driver.Driver
	Prompt  *prompt.Prompt
	Model   string
	Retrier *retry.Retrier
	Policy  retry.Policy
	Service string
	Clock   func() time.Time
}

// Request selects what to generate.
type Request struct {
	Product  catalog.Product
	Count    int
	Platform content.Platform
}

// ResponseError wraps a decode failure with the raw model output.
type ResponseError struct {
	Err error
	Raw string
}

func (e *ResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "generator error"
	}
	return e.Err.Error()
}

func (e *ResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type generatedItem struct {
	Hook         string   `json:"hook"`
	Script       string   `json:"script"`
	Caption      string   `json:"caption"`
	Hashtags     []string `json:"hashtags"`
	CallToAction string   `json:"call_to_action"`
	Category     string   `json:"category"`
}

type generatedPayload struct {
	Items []generatedItem `json:"items"`
}

// Generate renders the prompt for req, calls the driver with retries, and
// returns a stamped batch. The batch is not persisted.
func (g *Generator) Generate(ctx context.Context, req Request) (*content.Batch, error) {
	if g == nil || g.Driver == nil {
		return nil, errors.New("generator driver not configured")
	}
	if g.Prompt == nil {
		return nil, errors.New("generator prompt not configured")
	}
	if err := req.Product.Validate(); err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = DefaultCount
	}
	if count > maxCount {
		count = maxCount
	}
	platform := req.Platform
	if platform == "" {
		platform = content.PlatformTikTok
	}

	system, user, err := g.Prompt.Render(map[string]string{
		"product":  req.Product.Name,
		"url":      req.Product.URL,
		"price":    fmt.Sprintf("$%.2f", req.Product.Price),
		"category": req.Product.Category,
		"audience": req.Product.Audience,
		"platform": string(platform),
		"count":    strconv.Itoa(count),
	})
	if err != nil {
		return nil, err
	}

	driverReq := &driver.Request{
		Model: g.Model,
		Messages: []driver.Message{
			{Role: driver.RoleSystem, Content: system},
			{Role: driver.RoleUser, Content: user},
		},
		Temperature: g.Prompt.Config.Temperature,
		MaxTokens:   g.Prompt.Config.MaxTokens,
		PromptSlug:  g.Prompt.Config.Slug,
	}
	if format := strings.TrimSpace(g.Prompt.Config.ResponseFormat); format != "" {
		driverReq.ResponseFormat = &driver.ResponseFormat{Type: format}
	}

	resp, err := retry.Do(ctx, g.Retrier, g.service(), func(ctx context.Context) (*driver.Response, error) {
		return g.Driver.Complete(ctx, driverReq)
	}, g.Policy)
	if err != nil {
		return nil, err
	}

	items, err := decodeItems(resp)
	if err != nil {
		return nil, err
	}

	batch := &content.Batch{Product: req.Product.Name, Model: g.Model}
	for _, gi := range items {
		category := strings.ToLower(strings.TrimSpace(gi.Category))
		if category == "" {
			category = req.Product.Category
		}
		batch.Items = append(batch.Items, content.Item{
			Product:      req.Product.Name,
			Platform:     platform,
			Hook:         strings.TrimSpace(gi.Hook),
			Script:       strings.TrimSpace(gi.Script),
			Caption:      strings.TrimSpace(gi.Caption),
			Hashtags:     normalizeHashtags(gi.Hashtags),
			CallToAction: strings.TrimSpace(gi.CallToAction),
			Category:     category,
		})
	}
	batch.Stamp(g.now())
	return batch, nil
}

func decodeItems(resp *driver.Response) ([]generatedItem, error) {
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, errors.New("empty response content")
	}
	raw := stripCodeFence(resp.Text)

	var payload generatedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &ResponseError{Err: fmt.Errorf("invalid response json: %w", err), Raw: truncate(raw)}
	}

	items := payload.Items[:0]
	for _, it := range payload.Items {
		if strings.TrimSpace(it.Hook) == "" && strings.TrimSpace(it.Script) == "" {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, &ResponseError{Err: errors.New("invalid response: no usable items"), Raw: truncate(raw)}
	}
	return items, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizeHashtags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		tag = strings.ReplaceAll(tag, " ", "")
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func truncate(s string) string {
	if len(s) <= rawLimit {
		return s
	}
	return s[:rawLimit]
}

func (g *Generator) service() string {
	if strings.TrimSpace(g.Service) == "" {
		return DefaultService
	}
	return g.Service
}

func (g *Generator) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}
