package syncengine

import "time"

// Default reconnect backoff bounds.
const (
	DefaultBackoffBase = time.Second
	DefaultBackoffMax  = 30 * time.Second
)

// Backoff computes capped exponential reconnect delays.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns min(Base * 2^(attempt-1), Max) for attempt >= 1. Attempt 0
// (or less) means no failure yet and yields zero.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	base, limit := b.Base, b.Max
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if limit <= 0 {
		limit = DefaultBackoffMax
	}
	if limit < base {
		limit = base
	}
	d := base
	for i := 1; i < attempt; i++ {
		if d > limit/2 {
			return limit
		}
		d *= 2
	}
	if d > limit {
		return limit
	}
	return d
}
