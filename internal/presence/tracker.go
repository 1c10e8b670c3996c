// Package presence tracks which devices are currently viewing which vault
// items.
//
// A viewer is live while its last heartbeat is within the TTL of now.
// Freshness is evaluated lazily on every read, so a device that stops
// heartbeating silently drops out of ListLive without any cleanup having
// run. The optional reaper only bounds storage growth by hard-deleting
// sessions that have been stale for much longer than the TTL.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/clock"
	"github.com/alfredjeanlab/vaultsync/internal/model"
	"github.com/alfredjeanlab/vaultsync/internal/store"
)

// ReaperConfig configures the background stale-session reaper.
type ReaperConfig struct {
	// EvictAfter is how long a session must be idle before it is deleted.
	// Default: 3x the tracker TTL.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans for stale sessions.
	// Default: 60 seconds.
	SweepInterval time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTTL sets the freshness window. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock injects the time source.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger sets the logger used by the reaper.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// Tracker records heartbeats and answers live-viewer queries over a
// store.SessionStore.
type Tracker struct {
	store  store.SessionStore
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.Mutex
	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New creates a tracker over s.
func New(s store.SessionStore, opts ...Option) *Tracker {
	t := &Tracker{
		store:  s,
		ttl:    model.DefaultPresenceTTL,
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// TTL returns the freshness window.
func (t *Tracker) TTL() time.Duration { return t.ttl }

// Heartbeat records that deviceID is viewing itemID now. The device must be
// registered. Heartbeats are idempotent and LastActiveAt never moves
// backward, even if the clock does.
func (t *Tracker) Heartbeat(ctx context.Context, deviceID, itemID string) (model.Session, error) {
	if err := model.ValidateSessionKey(deviceID, itemID); err != nil {
		return model.Session{}, err
	}
	ok, err := t.store.DeviceExists(ctx, deviceID)
	if err != nil {
		return model.Session{}, fmt.Errorf("lookup device %q: %w", deviceID, err)
	}
	if !ok {
		return model.Session{}, fmt.Errorf("device %q: %w", deviceID, model.ErrNotFound)
	}

	sess, err := t.store.UpsertSession(ctx, model.Session{
		DeviceID:     deviceID,
		ItemID:       itemID,
		LastActiveAt: t.clock.Now().UTC(),
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("record heartbeat: %w", err)
	}
	return sess, nil
}

// Release removes the session for (deviceID, itemID). Releasing a session
// that does not exist succeeds.
func (t *Tracker) Release(ctx context.Context, deviceID, itemID string) error {
	if err := model.ValidateSessionKey(deviceID, itemID); err != nil {
		return err
	}
	if err := t.store.DeleteSession(ctx, deviceID, itemID); err != nil {
		return fmt.Errorf("release session: %w", err)
	}
	return nil
}

// ListLive returns the sessions for itemID whose last heartbeat is within
// the TTL of now. Stale rows are filtered out but not deleted.
func (t *Tracker) ListLive(ctx context.Context, itemID string) ([]model.Session, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: itemId is required", model.ErrValidation)
	}
	all, err := t.store.ListSessions(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := t.clock.Now()
	live := make([]model.Session, 0, len(all))
	for _, s := range all {
		if s.Live(now, t.ttl) {
			live = append(live, s)
		}
	}
	return live, nil
}

// StartReaper launches a background goroutine that periodically deletes
// long-stale sessions. Call Stop() to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	c := ReaperConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.EvictAfter <= 0 {
		c.EvictAfter = 3 * t.ttl
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 60 * time.Second
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reaperStop != nil {
		return
	}
	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(c, t.reaperStop, t.reaperDone)
	t.logger.Info("presence: reaper started",
		"evict_after", c.EvictAfter,
		"sweep_interval", c.SweepInterval)
}

// Stop shuts down the reaper goroutine. It is safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop, done := t.reaperStop, t.reaperDone
	t.reaperStop, t.reaperDone = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (t *Tracker) reapLoop(cfg ReaperConfig, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := t.clock.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg ReaperConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cutoff := t.clock.Now().UTC().Add(-cfg.EvictAfter)
	n, err := t.store.DeleteSessionsBefore(ctx, cutoff)
	if err != nil {
		t.logger.Warn("presence: reaper sweep failed", "error", err)
		return
	}
	if n > 0 {
		t.logger.Info("presence: reaper evicted stale sessions",
			"count", n,
			"evict_after", cfg.EvictAfter)
	}
}
