package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelkit/reelkit/internal/commission"
	"github.com/reelkit/reelkit/internal/content"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/store"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)
	require.Equal(t, ".md", format.Extension())

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatItems(t *testing.T) {
	items := []content.Item{
		{ID: "0123456789abcdef", Platform: content.PlatformTikTok, Hook: "Stand up", Caption: "Desk | time", Hashtags: []string{"wfh", "desk"}},
	}

	table, err := FormatItems(FormatTable, items)
	require.NoError(t, err)
	require.Contains(t, table, "01234567")
	require.Contains(t, table, "#wfh #desk")
	require.Contains(t, table, "1 items")

	md, err := FormatItems(FormatMarkdown, items)
	require.NoError(t, err)
	require.Contains(t, md, "| ID | Platform | Hook | Caption | Hashtags |")
	require.Contains(t, md, `Desk \| time`)

	js, err := FormatItems(FormatJSON, items)
	require.NoError(t, err)
	var decoded []content.Item
	require.NoError(t, json.Unmarshal([]byte(js), &decoded))
	require.Equal(t, "0123456789abcdef", decoded[0].ID)
}

func TestFormatRateLimits(t *testing.T) {
	out, err := FormatRateLimits(FormatTable, []RateLimitEntry{{
		Service: "openai",
		Limit:   ratelimit.Limit{MaxRequests: 3, Interval: time.Minute},
		Stats:   ratelimit.Stats{Used: 1, Max: 3, Available: 2},
	}})
	require.NoError(t, err)
	require.Contains(t, out, "openai")
	require.Contains(t, out, "3 / 1m0s")
}

func TestFormatEstimatesTotal(t *testing.T) {
	out, err := FormatEstimates(FormatMarkdown, []commission.Estimate{
		{Product: "A", Commission: 2},
		{Product: "B", Commission: 8.5},
	})
	require.NoError(t, err)
	require.Contains(t, out, "**Total**: $10.50")
}

func TestFormatPostsAndQueue(t *testing.T) {
	posted := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	out, err := FormatPosts(FormatTable, []store.Post{{Product: "Desk", Platform: "tiktok", Poster: "log", Status: "failed", Attempts: 4, Category: "NETWORK", Error: "refused", PostedAt: posted}})
	require.NoError(t, err)
	require.Contains(t, out, "2025-06-01T10:00:00Z")
	require.Contains(t, out, "NETWORK: refused")

	out, err = FormatQueue(FormatMarkdown, []QueueEntry{{Position: 0, Next: true, Item: content.Item{Product: "Desk", Hook: "Stand"}}})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "| # | Next | Product | Hook |"))
	require.Contains(t, out, "**Total**: 1 queued")
}
