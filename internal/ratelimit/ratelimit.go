// Package ratelimit tracks sliding-window request counts per named service.
package ratelimit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reelkit/reelkit/internal/errclass"
)

// DefaultMargin is added to computed waits so the oldest call has fully expired.
const DefaultMargin = 10 * time.Millisecond

// Limit is the request budget for one service.
type Limit struct {
	MaxRequests int           `json:"max_requests" mapstructure:"max_requests"`
	Interval    time.Duration `json:"interval" mapstructure:"interval"`
}

// Validate rejects non-positive limits.
func (l Limit) Validate() error {
	if l.MaxRequests <= 0 {
		return errclass.NewValidationError("max_requests", "must be greater than zero (got %d)", l.MaxRequests)
	}
	if l.Interval <= 0 {
		return errclass.NewValidationError("interval", "must be greater than zero (got %s)", l.Interval)
	}
	return nil
}

// Stats summarizes current usage for a service.
type Stats struct {
	Used      int `json:"used"`
	Max       int `json:"max"`
	Available int `json:"available"`
}

type serviceState struct {
	limit      Limit
	timestamps []time.Time
}

// Registry holds independent limiter state per service name.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	services map[string]*serviceState

	clock  func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	margin time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithSleep overrides how AwaitCapacity and Acquire suspend.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Registry) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithMargin overrides the safety margin added to each wait.
func WithMargin(margin time.Duration) Option {
	return func(r *Registry) {
		if margin >= 0 {
			r.margin = margin
		}
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		services: make(map[string]*serviceState),
		clock:    time.Now,
		sleep:    SleepContext,
		margin:   DefaultMargin,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configure sets the limit for name. Reconfiguring replaces the limit and clears history.
func (r *Registry) Configure(name string, limit Limit) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errclass.NewValidationError("service", "name is required")
	}
	if err := limit.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = &serviceState{limit: limit}
	return nil
}

// Configured reports whether name has a limit.
func (r *Registry) Configured(name string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.services[name]
	return ok
}

// Limit returns the configured limit for name.
func (r *Registry) Limit(name string) (Limit, bool) {
	if r == nil {
		return Limit{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.services[name]
	if !ok {
		return Limit{}, false
	}
	return state.limit, true
}

// CanProceed reports whether another call to name fits in the current window.
// Services without a configured limit are unrestricted.
func (r *Registry) CanProceed(name string) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.services[name]
	if !ok {
		return true
	}
	state.prune(r.clock())
	return len(state.timestamps) < state.limit.MaxRequests
}

// RecordCall notes a call to name at the current instant.
func (r *Registry) RecordCall(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.services[name]
	if !ok {
		return
	}
	now := r.clock()
	state.prune(now)
	state.timestamps = append(state.timestamps, now)
}

// AwaitCapacity blocks until CanProceed(name) is true. It only fails when ctx ends.
func (r *Registry) AwaitCapacity(ctx context.Context, name string) error {
	if r == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		wait, ok := r.waitFor(name)
		if ok {
			return nil
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// WaitTime returns how long a caller would wait for capacity on name right now.
func (r *Registry) WaitTime(name string) time.Duration {
	if r == nil {
		return 0
	}
	wait, ok := r.waitFor(name)
	if ok {
		return 0
	}
	return wait
}

// Acquire blocks until name has capacity and records the call under the same
// lock that observed it, so concurrent callers never exceed MaxRequests.
// Unknown services pass immediately. It only fails when ctx ends.
func (r *Registry) Acquire(ctx context.Context, name string) error {
	if r == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		wait, ok := r.tryAcquire(name)
		if ok {
			return nil
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Registry) tryAcquire(name string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.services[name]
	if !ok {
		return 0, true
	}
	now := r.clock()
	if wait, full := state.waitAt(now, r.margin); full {
		return wait, false
	}
	state.timestamps = append(state.timestamps, now)
	return 0, true
}

func (r *Registry) waitFor(name string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.services[name]
	if !ok {
		return 0, true
	}
	wait, full := state.waitAt(r.clock(), r.margin)
	return wait, !full
}

// Statistics reports usage for name.
func (r *Registry) Statistics(name string) (Stats, bool) {
	if r == nil {
		return Stats{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.services[name]
	if !ok {
		return Stats{}, false
	}
	state.prune(r.clock())
	used := len(state.timestamps)
	available := state.limit.MaxRequests - used
	if available < 0 {
		available = 0
	}
	return Stats{Used: used, Max: state.limit.MaxRequests, Available: available}, true
}

// Services returns configured service names in sorted order.
func (r *Registry) Services() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears call history for name, keeping its limit.
func (r *Registry) Reset(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.services[name]; ok {
		state.timestamps = nil
	}
}

// ResetAll clears call history for every service.
func (r *Registry) ResetAll() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, state := range r.services {
		state.timestamps = nil
	}
}

// History returns the unexpired call timestamps for name, oldest first.
func (r *Registry) History(name string) []time.Time {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.services[name]
	if !ok {
		return nil
	}
	state.prune(r.clock())
	out := make([]time.Time, len(state.timestamps))
	copy(out, state.timestamps)
	return out
}

// Restore replaces the call history for name with calls, dropping expired ones.
// It is a no-op for unknown names.
func (r *Registry) Restore(name string, calls []time.Time) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.services[name]
	if !ok {
		return
	}
	state.timestamps = make([]time.Time, len(calls))
	copy(state.timestamps, calls)
	sort.Slice(state.timestamps, func(i, j int) bool {
		return state.timestamps[i].Before(state.timestamps[j])
	})
	state.prune(r.clock())
}

// waitAt prunes the window at now and reports whether it is full and, if so,
// how long until the oldest call expires plus margin. Callers hold r.mu.
func (s *serviceState) waitAt(now time.Time, margin time.Duration) (time.Duration, bool) {
	s.prune(now)
	if len(s.timestamps) < s.limit.MaxRequests {
		return 0, false
	}
	wait := s.timestamps[0].Add(s.limit.Interval).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait + margin, true
}

// prune drops timestamps that have left the trailing window.
func (s *serviceState) prune(now time.Time) {
	cutoff := now.Add(-s.limit.Interval)
	idx := 0
	for idx < len(s.timestamps) && !s.timestamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return
	}
	s.timestamps = append(s.timestamps[:0], s.timestamps[idx:]...)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
