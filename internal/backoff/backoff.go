// Package backoff computes capped exponential delays with random jitter.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// DefaultMaxJitter is the upper bound of the jitter fraction added to a delay.
const DefaultMaxJitter = 0.5

// Calculator computes retry delays. The zero value is ready to use.
type Calculator struct {
	// Rand returns a value in [0, 1). Defaults to math/rand/v2.Float64.
	Rand func() float64
	// MaxJitter bounds the added fraction; delay = capped * (1 + Rand()*MaxJitter).
	MaxJitter float64
}

// Delay returns min(base*2^attempt, max) scaled by (1 + jitter).
func (c *Calculator) Delay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 || base <= 0 {
		return 0
	}

	capped := float64(base) * math.Pow(2, float64(attempt))
	if max > 0 && capped > float64(max) {
		capped = float64(max)
	}

	out := capped * (1 + c.jitter())
	if out >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(out)
}

// Bounds returns the inclusive range Delay can produce for attempt.
func (c *Calculator) Bounds(attempt int, base, max time.Duration) (time.Duration, time.Duration) {
	if attempt < 0 || base <= 0 {
		return 0, 0
	}
	capped := float64(base) * math.Pow(2, float64(attempt))
	if max > 0 && capped > float64(max) {
		capped = float64(max)
	}
	upper := capped * (1 + c.maxJitter())
	if upper >= math.MaxInt64 {
		upper = math.MaxInt64
	}
	if capped >= math.MaxInt64 {
		capped = math.MaxInt64
	}
	return time.Duration(capped), time.Duration(upper)
}

func (c *Calculator) jitter() float64 {
	src := rand.Float64
	if c != nil && c.Rand != nil {
		src = c.Rand
	}
	r := src()
	if r < 0 {
		r = 0
	}
	if r >= 1 {
		r = math.Nextafter(1, 0)
	}
	return r * c.maxJitter()
}

func (c *Calculator) maxJitter() float64 {
	if c == nil || c.MaxJitter <= 0 {
		return DefaultMaxJitter
	}
	return c.MaxJitter
}
