// Package content defines generated content items and their JSON file storage.
package content

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform identifies where an item is meant to be posted.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

// ParsePlatform normalizes a platform name; empty defaults to TikTok.
func ParsePlatform(value string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(value))) {
	case "", PlatformTikTok:
		return PlatformTikTok, true
	case PlatformInstagram:
		return PlatformInstagram, true
	case PlatformYouTube, "shorts":
		return PlatformYouTube, true
	default:
		return "", false
	}
}

// Item is one generated video script with its caption.
type Item struct {
	ID           string    `json:"id"`
	Product      string    `json:"product"`
	Platform     Platform  `json:"platform"`
	Hook         string    `json:"hook"`
	Script       string    `json:"script"`
	Caption      string    `json:"caption"`
	Hashtags     []string  `json:"hashtags,omitempty"`
	CallToAction string    `json:"call_to_action,omitempty"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Label returns a short description for logs and tables.
func (i Item) Label() string {
	hook := strings.TrimSpace(i.Hook)
	if hook == "" {
		hook = strings.TrimSpace(i.Caption)
	}
	if len(hook) > 60 {
		hook = hook[:57] + "..."
	}
	if i.Category == "" {
		return hook
	}
	return "[" + i.Category + "] " + hook
}

// Batch is the unit written to a single JSON file.
type Batch struct {
	GeneratedAt time.Time `json:"generated_at"`
	Product     string    `json:"product,omitempty"`
	Model       string    `json:"model,omitempty"`
	Items       []Item    `json:"items"`
}

// Stamp fills missing IDs and timestamps.
func (b *Batch) Stamp(now time.Time) {
	if b.GeneratedAt.IsZero() {
		b.GeneratedAt = now
	}
	for idx := range b.Items {
		if b.Items[idx].ID == "" {
			b.Items[idx].ID = uuid.NewString()
		}
		if b.Items[idx].CreatedAt.IsZero() {
			b.Items[idx].CreatedAt = b.GeneratedAt
		}
		if b.Items[idx].Product == "" {
			b.Items[idx].Product = b.Product
		}
	}
}
