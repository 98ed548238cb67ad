package allocate

import (
	"time"
)

// BackoffConfig controls the allocator's retry delays
type BackoffConfig struct {
	Initial      time.Duration
	Max          time.Duration
	JitterFactor float64 // 0.0-1.0 fraction of the delay added as jitter
}

// DefaultBackoffConfig returns the default retry delays
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:      50 * time.Millisecond,
		Max:          2 * time.Second,
		JitterFactor: 0.2, // keeps concurrent allocators from retrying in lockstep
	}
}

// Delay computes the exponential backoff for a zero-based attempt number,
// capped at Max, with jitter derived from the clock
func (c BackoffConfig) Delay(attempt int, now time.Time) time.Duration {
	delay := c.Initial * (1 << uint(attempt))
	if delay > c.Max || delay <= 0 {
		delay = c.Max
	}
	if c.JitterFactor > 0 {
		jitter := time.Duration(float64(delay) * c.JitterFactor * float64(now.UnixNano()%100) / 100.0)
		delay += jitter
	}
	return delay
}
