package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/reelkit/reelkit/internal/commission"
	"github.com/reelkit/reelkit/internal/content"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/store"
)

// QueueEntry is one item with its position in the rotation.
type QueueEntry struct {
	Position int          `json:"position"`
	Next     bool         `json:"next"`
	Item     content.Item `json:"item"`
}

// RateLimitEntry is a configured service with its current usage.
type RateLimitEntry struct {
	Service string          `json:"service"`
	Limit   ratelimit.Limit `json:"limit"`
	Stats   ratelimit.Stats `json:"stats"`
}

// FormatItems renders generated content.
func FormatItems(format Format, items []content.Item) (string, error) {
	s := sheet{Header: []string{"ID", "Platform", "Hook", "Caption", "Hashtags"}}
	for _, item := range items {
		s.Rows = append(s.Rows, []string{
			shortID(item.ID),
			string(item.Platform),
			truncate(item.Label(), 50),
			truncate(item.Caption, 50),
			truncate(hashtags(item.Hashtags), 40),
		})
	}
	s.Footer = fmt.Sprintf("%d items", len(items))
	return render(format, items, s)
}

// FormatQueue renders the queue rotation.
func FormatQueue(format Format, entries []QueueEntry) (string, error) {
	s := sheet{Header: []string{"#", "Next", "Product", "Hook"}}
	for _, e := range entries {
		marker := ""
		if e.Next {
			marker = "→"
		}
		s.Rows = append(s.Rows, []string{
			strconv.Itoa(e.Position),
			marker,
			truncate(e.Item.Product, 30),
			truncate(e.Item.Label(), 60),
		})
	}
	s.Footer = fmt.Sprintf("%d queued", len(entries))
	return render(format, entries, s)
}

// FormatRateLimits renders limiter usage per service.
func FormatRateLimits(format Format, entries []RateLimitEntry) (string, error) {
	s := sheet{Header: []string{"Service", "Limit", "Used", "Available"}}
	for _, e := range entries {
		s.Rows = append(s.Rows, []string{
			e.Service,
			fmt.Sprintf("%d / %s", e.Limit.MaxRequests, e.Limit.Interval),
			strconv.Itoa(e.Stats.Used),
			strconv.Itoa(e.Stats.Available),
		})
	}
	return render(format, entries, s)
}

// FormatEstimates renders commission projections.
func FormatEstimates(format Format, estimates []commission.Estimate) (string, error) {
	s := sheet{Header: []string{"Product", "Clicks", "Sales", "Revenue", "Commission", "Per Sale", "Per 1k Views"}}
	var total float64
	for _, e := range estimates {
		total += e.Commission
		s.Rows = append(s.Rows, []string{
			e.Product,
			formatFloat(e.Clicks),
			formatFloat(e.Sales),
			money(e.GrossRevenue),
			money(e.Commission),
			money(e.PerSale),
			money(e.PerThousand),
		})
	}
	if len(estimates) > 1 {
		s.Footer = money(total)
	}
	return render(format, estimates, s)
}

// FormatPosts renders post log rows.
func FormatPosts(format Format, posts []store.Post) (string, error) {
	s := sheet{Header: []string{"Posted", "Product", "Platform", "Poster", "Status", "Attempts", "Error"}}
	for _, p := range posts {
		errText := p.Error
		if p.Category != "" {
			errText = p.Category + ": " + errText
		}
		s.Rows = append(s.Rows, []string{
			p.PostedAt.Format(time.RFC3339),
			p.Product,
			p.Platform,
			p.Poster,
			p.Status,
			strconv.Itoa(p.Attempts),
			truncate(errText, 50),
		})
	}
	s.Footer = fmt.Sprintf("%d posts", len(posts))
	return render(format, posts, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func hashtags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "#" + strings.Join(tags, " #")
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
