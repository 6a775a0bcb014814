// Package scheduler posts queued content on a fixed interval through the
// rate-limited retry path and records each outcome.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/content"
	"github.com/reelkit/reelkit/internal/errclass"
	"github.com/reelkit/reelkit/internal/metrics"
	"github.com/reelkit/reelkit/internal/queue"
	"github.com/reelkit/reelkit/internal/retry"
	"github.com/reelkit/reelkit/internal/store"
)

// DefaultService is the rate-limit and retry service name for posting.
const DefaultService = "poster"

// ErrQueueEmpty is returned by Tick when there is nothing to post.
var ErrQueueEmpty = errors.New("content queue is empty")

// Recorder persists post outcomes. *store.Store implements it.
type Recorder interface {
	RecordPost(ctx context.Context, p store.Post) error
}

// Scheduler rotates through Queue, posting one item per tick.
type Scheduler struct {
	Queue    *queue.Queue
	Poster   Poster
	Retrier  *retry.Retrier
	Policy   retry.Policy
	Recorder Recorder
	Interval time.Duration
	Service  string
	Logger   *logging.Logger
	Clock    func() time.Time

	// MaxPosts stops Run after this many ticks; zero means run until cancelled.
	MaxPosts int
}

// Result is the outcome of one tick.
type Result struct {
	Item     content.Item
	Status   string
	Attempts int
	Category errclass.Category
	Err      error
}

// Tick posts the next queued item. It returns the post error, if any, after
// recording the outcome. Recorder failures are logged, not returned.
func (s *Scheduler) Tick(ctx context.Context) (Result, error) {
	if s == nil || s.Queue == nil || s.Poster == nil {
		return Result{}, errors.New("scheduler queue and poster are required")
	}

	item, ok := s.Queue.Next()
	metrics.SetQueueSize(s.Queue.Size())
	if !ok {
		return Result{}, ErrQueueEmpty
	}

	attempts := 0
	err := retry.Run(ctx, s.Retrier, s.service(), func(ctx context.Context) error {
		attempts++
		return s.Poster.Post(ctx, item)
	}, s.Policy)

	result := Result{Item: item, Status: store.StatusPosted, Attempts: attempts}
	if err != nil {
		result.Status = store.StatusFailed
		result.Err = err
		result.Category = errclass.Categorize(err)
	}
	if ctx.Err() != nil && attempts == 0 {
		return result, err
	}

	metrics.RecordPost(result.Status)
	s.record(ctx, result)

	if err != nil {
		s.warn("Post failed",
			zap.String("item_id", item.ID),
			zap.String("product", item.Product),
			zap.Int("attempts", attempts),
			zap.String("category", string(result.Category)),
			zap.Error(err))
		return result, err
	}

	s.info("Posted content",
		zap.String("item_id", item.ID),
		zap.String("product", item.Product),
		zap.String("platform", string(item.Platform)),
		zap.Int("attempts", attempts))
	return result, nil
}

// Run ticks immediately and then every Interval until ctx is done or
// MaxPosts ticks have run. Tick failures are logged and do not stop the loop,
// except ErrQueueEmpty which ends it.
func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil {
		return errors.New("scheduler is nil")
	}
	if s.Interval <= 0 {
		return errclass.NewValidationError("interval", "scheduler interval must be positive")
	}

	s.info("Scheduler started",
		zap.Duration("interval", s.Interval),
		zap.String("poster", s.Poster.Name()),
		zap.Int("queue_size", s.Queue.Size()))

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	ticks := 0
	for {
		if _, err := s.Tick(ctx); errors.Is(err, ErrQueueEmpty) {
			return err
		}
		ticks++
		if s.MaxPosts > 0 && ticks >= s.MaxPosts {
			return nil
		}

		select {
		case <-ctx.Done():
			s.info("Scheduler stopped", zap.Int("ticks", ticks))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) record(ctx context.Context, r Result) {
	if s.Recorder == nil {
		return
	}
	post := store.Post{
		ItemID:   r.Item.ID,
		Product:  r.Item.Product,
		Platform: string(r.Item.Platform),
		Poster:   s.Poster.Name(),
		Status:   r.Status,
		Attempts: r.Attempts,
		PostedAt: s.now(),
	}
	if r.Err != nil {
		post.Category = string(r.Category)
		post.Error = r.Err.Error()
	}
	// Record even when ctx was cancelled mid-post.
	if err := s.Recorder.RecordPost(context.WithoutCancel(ctx), post); err != nil {
		s.warn("Failed to record post", zap.String("item_id", r.Item.ID), zap.Error(err))
	}
}

func (s *Scheduler) service() string {
	if s.Service == "" {
		return DefaultService
	}
	return s.Service
}

func (s *Scheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *Scheduler) info(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Info(msg, fields...)
	}
}

func (s *Scheduler) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}
