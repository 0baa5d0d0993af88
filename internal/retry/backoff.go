// Package retry provides jittered exponential backoff for pacing the
// accept loop across transient failures.
//
// Nothing in this server retries command work; backoff exists solely so
// a hot accept error (EMFILE, transient network trouble) cannot spin
// the accept loop at full speed.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff computes jittered exponential delays.
type Backoff struct {
	// InitialDelay is the delay after the first failure (default 5ms).
	InitialDelay time.Duration
	// MaxDelay caps the backoff duration (default 1s).
	MaxDelay time.Duration
	// Multiplier increases the delay each consecutive failure (default 2.0).
	Multiplier float64
	// Jitter adds ±25% randomisation.
	Jitter bool
}

// AcceptBackoff returns the pacing used between failed accepts; the
// same shape net/http uses, with jitter on top.
func AcceptBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Delay returns the wait for the given 1-based consecutive-failure
// count.  Callers reset their counter on success.
func (b *Backoff) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	initial := b.InitialDelay
	if initial == 0 {
		initial = 5 * time.Millisecond
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	maxDelay := b.MaxDelay
	if maxDelay == 0 {
		maxDelay = time.Second
	}

	d := float64(initial) * math.Pow(multiplier, float64(failures-1))
	if d > float64(maxDelay) {
		d = float64(maxDelay)
	}
	delay := time.Duration(d)
	if b.Jitter {
		delay = addJitter(delay)
	}
	return delay
}

// Sleep waits out Delay(failures) or returns early when ctx is done.
func (b *Backoff) Sleep(ctx context.Context, failures int) {
	t := time.NewTimer(b.Delay(failures))
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Millisecond)))
}
