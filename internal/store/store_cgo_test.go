//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelkit/reelkit/internal/config"
)

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{
		Driver: "libsql",
		Path:   ":memory:",
	}

	store, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, store)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Close())
}

func TestPostLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.StoreConfig{Path: filepath.Join(t.TempDir(), "data", "posts.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordPost(ctx, Post{ItemID: "a", Product: "Desk", Platform: "tiktok", Poster: "log", Status: StatusPosted, PostedAt: base}))
	require.NoError(t, store.RecordPost(ctx, Post{ItemID: "b", Product: "Lamp", Platform: "tiktok", Poster: "webhook", Status: StatusFailed, Attempts: 4, Category: "NETWORK", Error: "connection refused", PostedAt: base.Add(time.Hour)}))
	require.NoError(t, store.RecordPost(ctx, Post{ItemID: "c", Product: "Desk", Platform: "instagram", Poster: "log", Status: StatusPosted, PostedAt: base.Add(2 * time.Hour)}))
	require.Error(t, store.RecordPost(ctx, Post{ItemID: "d", Status: "maybe"}))

	posts, err := store.ListPosts(ctx, PostQuery{All: true}, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "c", posts[0].ItemID)
	require.Equal(t, "b", posts[1].ItemID)
	require.Equal(t, 4, posts[1].Attempts)
	require.Equal(t, "NETWORK", posts[1].Category)
	require.Equal(t, base.Add(time.Hour), posts[1].PostedAt)
	require.NotEmpty(t, posts[0].ID)

	count, err := store.CountPosts(ctx, PostQuery{Product: "Desk"})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	removed, err := store.ResetPosts(ctx, PostQuery{Status: StatusFailed})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	count, err = store.CountPosts(ctx, PostQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestRateLimitHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenMigrated(ctx, config.StoreConfig{Path: filepath.Join(t.TempDir(), "limits.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2025, 5, 1, 8, 0, 0, 123, time.UTC)
	require.NoError(t, store.SaveRateLimitHistory(ctx, "openai", []time.Time{base, base.Add(time.Second)}))
	require.NoError(t, store.SaveRateLimitHistory(ctx, "poster", []time.Time{base}))
	require.NoError(t, store.SaveRateLimitHistory(ctx, "openai", []time.Time{base.Add(2 * time.Second)}))

	history, err := store.LoadRateLimitHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "openai", history[0].Service)
	require.Equal(t, []time.Time{base.Add(2 * time.Second)}, history[0].Calls)
	require.Equal(t, base, history[1].Calls[0])

	removed, err := store.ResetRateLimits(ctx, "poster")
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	removed, err = store.ResetRateLimits(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	history, err = store.LoadRateLimitHistory(ctx)
	require.NoError(t, err)
	require.Empty(t, history)
}
