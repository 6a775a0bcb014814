// Package retry re-runs fallible operations with rate limiting and jittered
// exponential backoff. Only error categories in the policy's retryable set are
// retried; everything else fails on the first attempt.
package retry

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/reelkit/reelkit/internal/backoff"
	"github.com/reelkit/reelkit/internal/errclass"
	"github.com/reelkit/reelkit/internal/ratelimit"
)

// Defaults applied when a Policy leaves a field unset.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// CategorySet is an explicit allowlist of retryable categories.
type CategorySet map[errclass.Category]struct{}

// NewCategorySet builds a set from the given categories.
func NewCategorySet(categories ...errclass.Category) CategorySet {
	set := make(CategorySet, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether c is in the set.
func (s CategorySet) Has(c errclass.Category) bool {
	_, ok := s[c]
	return ok
}

// List returns the set members sorted by name.
func (s CategorySet) List() []errclass.Category {
	out := make([]errclass.Category, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s CategorySet) String() string {
	list := s.List()
	parts := make([]string, len(list))
	for i, c := range list {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// DefaultRetryable retries rate limits and low-level network failures.
func DefaultRetryable() CategorySet {
	return NewCategorySet(errclass.CategoryRateLimit, errclass.CategoryNetwork)
}

// Policy bounds a retried call.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Retryable is used as given; a nil set means DefaultRetryable.
	Retryable CategorySet
}

// DefaultPolicy returns the package defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Retryable:  DefaultRetryable(),
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Retryable == nil {
		p.Retryable = DefaultRetryable()
	}
	return p
}

// Attempt describes one executed attempt, reported through Retrier.OnAttempt.
type Attempt struct {
	Service   string
	Number    int // 1-based
	Err       error
	Category  errclass.Category
	WillRetry bool
	Delay     time.Duration
	Waited    time.Duration // time spent waiting on the rate limiter
}

// Retrier holds the collaborators used by Do. The zero value retries without
// rate limiting using the default classifier and backoff.
type Retrier struct {
	Limiter  *ratelimit.Registry
	Backoff  *backoff.Calculator
	Classify func(error) errclass.Category
	Sleep    func(ctx context.Context, d time.Duration) error
	// OnAttempt is called after every executed attempt.
	OnAttempt func(Attempt)
}

// Do runs op up to p.MaxRetries+1 times. When the limiter has service configured,
// every attempt waits for capacity and is recorded before it runs. The error from
// the final attempt, or from the first non-retryable one, is returned unchanged.
func Do[T any](ctx context.Context, r *Retrier, service string, op func(ctx context.Context) (T, error), p Policy) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r == nil {
		r = &Retrier{}
	}
	p = p.normalized()

	var zero T
	attempts := p.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		waited, err := r.gate(ctx, service)
		if err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			r.report(Attempt{Service: service, Number: i + 1, Waited: waited})
			return result, nil
		}

		category := r.classify(err)
		retry := p.Retryable.Has(category) && i < attempts-1
		var delay time.Duration
		if retry {
			delay = r.backoff().Delay(i, p.BaseDelay, p.MaxDelay)
		}
		r.report(Attempt{
			Service:   service,
			Number:    i + 1,
			Err:       err,
			Category:  category,
			WillRetry: retry,
			Delay:     delay,
			Waited:    waited,
		})
		if !retry {
			return zero, err
		}

		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}

	// Unreachable: the final iteration always returns.
	return zero, nil
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, r *Retrier, service string, op func(ctx context.Context) error, p Policy) error {
	_, err := Do(ctx, r, service, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, p)
	return err
}

func (r *Retrier) gate(ctx context.Context, service string) (time.Duration, error) {
	if r.Limiter == nil || !r.Limiter.Configured(service) {
		return 0, nil
	}
	start := time.Now()
	err := r.Limiter.Acquire(ctx, service)
	return time.Since(start), err
}

func (r *Retrier) classify(err error) errclass.Category {
	if r.Classify != nil {
		return r.Classify(err)
	}
	return errclass.Categorize(err)
}

func (r *Retrier) backoff() *backoff.Calculator {
	if r.Backoff != nil {
		return r.Backoff
	}
	return &backoff.Calculator{}
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return ratelimit.SleepContext(ctx, d)
}

func (r *Retrier) report(a Attempt) {
	if r.OnAttempt != nil {
		r.OnAttempt(a)
	}
}
