package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/backoff"
	"github.com/reelkit/reelkit/internal/config"
	"github.com/reelkit/reelkit/internal/content"
	"github.com/reelkit/reelkit/internal/metrics"
	"github.com/reelkit/reelkit/internal/observability"
	"github.com/reelkit/reelkit/internal/queue"
	"github.com/reelkit/reelkit/internal/ratelimit"
	"github.com/reelkit/reelkit/internal/retry"
	"github.com/reelkit/reelkit/internal/scheduler"
	"github.com/reelkit/reelkit/internal/store"
)

// newLimiter configures a registry from the rate_limits section.
func newLimiter(cfg *config.Config) (*ratelimit.Registry, error) {
	limiter := ratelimit.New()
	for name, limit := range cfg.RateLimits {
		if err := limiter.Configure(name, limit); err != nil {
			return nil, fmt.Errorf("rate_limits.%s: %w", name, err)
		}
	}
	return limiter, nil
}

// newRetrier wires the limiter with attempt metrics and logging.
func newRetrier(limiter *ratelimit.Registry, logger *logging.Logger) *retry.Retrier {
	logAttempt := observability.AttemptLogger(logger)
	return &retry.Retrier{
		Limiter: limiter,
		Backoff: &backoff.Calculator{},
		OnAttempt: func(a retry.Attempt) {
			metrics.ObserveAttempt(a)
			logAttempt(a)
		},
	}
}

// openStore opens the migrated post log store.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	st, err := store.OpenMigrated(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// openStoreOptional opens the store, logging and returning nil on failure.
// Commands that only use it for limiter history keep working without it.
func openStoreOptional(ctx context.Context, cfg *config.Config, logger *logging.Logger) *store.Store {
	st, err := openStore(ctx, cfg)
	if err != nil {
		if logger != nil {
			logger.Warn("Store unavailable, rate limit history will not persist", zap.Error(err))
		}
		return nil
	}
	return st
}

// restoreLimiter loads persisted call history into limiter.
func restoreLimiter(ctx context.Context, st *store.Store, limiter *ratelimit.Registry) error {
	if st == nil {
		return nil
	}
	history, err := st.LoadRateLimitHistory(ctx)
	if err != nil {
		return err
	}
	for _, h := range history {
		limiter.Restore(h.Service, h.Calls)
	}
	return nil
}

// persistLimiter writes limiter history for every configured service.
func persistLimiter(ctx context.Context, st *store.Store, limiter *ratelimit.Registry) error {
	if st == nil {
		return nil
	}
	for _, name := range limiter.Services() {
		if err := st.SaveRateLimitHistory(ctx, name, limiter.History(name)); err != nil {
			return err
		}
	}
	return nil
}

// loadQueue loads every stored item and resumes the rotation after the
// posts already in the log.
func loadQueue(ctx context.Context, cfg *config.Config, st *store.Store) (*queue.Queue, error) {
	items, err := content.NewStore(cfg.Content.Dir).LoadAll()
	if err != nil {
		return nil, err
	}
	q := queue.New(items)
	if st != nil {
		posted, err := st.CountPosts(ctx, store.PostQuery{All: true})
		if err != nil {
			return nil, err
		}
		q.Seek(posted)
	}
	metrics.SetQueueSize(q.Size())
	return q, nil
}

// newPoster builds the configured poster. name overrides cfg when set.
func newPoster(cfg *config.Config, name string, w io.Writer) (scheduler.Poster, error) {
	if strings.TrimSpace(name) == "" {
		name = cfg.Scheduler.Poster
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "log":
		return scheduler.NewLogPoster(w), nil
	case "webhook":
		if strings.TrimSpace(cfg.Scheduler.WebhookURL) == "" {
			return nil, fmt.Errorf("scheduler.webhook_url is required for the webhook poster")
		}
		return scheduler.NewWebhookPoster(cfg.Scheduler.WebhookURL), nil
	default:
		return nil, fmt.Errorf("unknown poster: %s", name)
	}
}

// buildScheduler wires a scheduler over the stored content with the
// configured poster, a limiter restored from st, and st as the recorder.
func buildScheduler(ctx context.Context, st *store.Store, posterName string, w io.Writer) (*scheduler.Scheduler, *ratelimit.Registry, error) {
	cfg := appConfig
	logger := observability.Logger()

	q, err := loadQueue(ctx, cfg, st)
	if err != nil {
		return nil, nil, err
	}
	poster, err := newPoster(cfg, posterName, w)
	if err != nil {
		return nil, nil, err
	}
	limiter, err := newLimiter(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := restoreLimiter(ctx, st, limiter); err != nil && logger != nil {
		logger.Warn("Failed to restore rate limit history", zap.Error(err))
	}

	sched := &scheduler.Scheduler{
		Queue:    q,
		Poster:   poster,
		Retrier:  newRetrier(limiter, logger),
		Policy:   cfg.Retry.Policy(),
		Interval: cfg.Scheduler.Interval,
		Logger:   logger,
	}
	if st != nil {
		sched.Recorder = st
	}
	return sched, limiter, nil
}
