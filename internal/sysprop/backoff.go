package sysprop

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	defaultMinDelay = 50 * time.Millisecond
	defaultMaxDelay = 2 * time.Second
	jitter          = 0.25
)

// Backoff implements exponential polling delays with jitter.
type Backoff struct {
	min, max time.Duration
	attempt  int
}

// NewBackoff returns a Backoff. Zero values select the defaults.
func NewBackoff(lo, hi time.Duration) *Backoff {
	if lo <= 0 {
		lo = defaultMinDelay
	}
	if hi < lo {
		hi = defaultMaxDelay
		if hi < lo {
			hi = lo
		}
	}
	return &Backoff{min: lo, max: hi}
}

// Wait blocks for the next delay and returns false if ctx is done first.
func (b *Backoff) Wait(ctx context.Context) bool {
	t := time.NewTimer(b.nextDelay())
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Reset restarts the sequence at the minimum delay.
func (b *Backoff) Reset() {
	b.attempt = 0
}

func (b *Backoff) nextDelay() time.Duration {
	// min * 2^attempt, capped at max
	base := float64(b.min) * math.Pow(2, float64(b.attempt))
	if base > float64(b.max) {
		base = float64(b.max)
	}

	j := base * jitter * (2*rand.Float64() - 1)
	d := time.Duration(base + j)
	if d < b.min {
		d = b.min
	}
	if d > b.max {
		d = b.max
	}

	b.attempt++
	return d
}
