// Package clock abstracts wall-clock time so that TTL, backoff and debounce
// timing can be driven deterministically in tests.
package clock

import "time"

// Clock is the source of time for every timing decision in vaultsync.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
	NewTicker(d time.Duration) Ticker
}

// Timer mirrors the subset of *time.Timer the sync code relies on.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// Ticker mirrors the subset of *time.Ticker the sync code relies on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer { return &realTimer{t: time.NewTimer(d)} }

func (realClock) NewTicker(d time.Duration) Ticker { return &realTicker{t: time.NewTicker(d)} }

type realTimer struct{ t *time.Timer }

func (r *realTimer) C() <-chan time.Time        { return r.t.C }
func (r *realTimer) Stop() bool                 { return r.t.Stop() }
func (r *realTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

type realTicker struct{ t *time.Ticker }

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// NewStoppedTimer returns a timer from c that will not fire until Reset.
func NewStoppedTimer(c Clock) Timer {
	t := c.NewTimer(time.Hour)
	t.Stop()
	// Drain in case it fired between NewTimer and Stop.
	select {
	case <-t.C():
	default:
	}
	return t
}
