// Package syncengine is the client half of vaultsync. An Engine keeps one
// event stream open to the server, reconnecting with capped exponential
// backoff, and turns the events it receives into cache invalidations. It
// also debounces local settings edits into single uploads and drives
// presence heartbeats for the items a client is viewing.
//
// Every timer the engine uses comes from an injected clock.Clock, so the
// state machine, the backoff schedule and the debounce window can be driven
// deterministically in tests.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/client"
	"github.com/alfredjeanlab/vaultsync/internal/clock"
	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// Defaults for Config fields left zero.
const (
	DefaultQuietPeriod       = time.Second
	DefaultHeartbeatInterval = 2 * time.Minute
	DefaultReleaseTimeout    = 2 * time.Second
	// DefaultIdleTimeout is three server keepalive intervals.
	DefaultIdleTimeout = 45 * time.Second
)

// ErrClosed is returned by operations on an engine after Close.
var ErrClosed = errors.New("sync engine closed")

// errStreamEnded reports that the server closed the stream without error.
var errStreamEnded = errors.New("stream closed by server")

// errStreamIdle reports a connected stream that went silent for longer than
// the idle timeout, which is how a half-open connection shows up.
var errStreamIdle = errors.New("stream idle")

// Backend is the slice of the server API the engine depends on.
// *client.HTTPClient satisfies it.
type Backend interface {
	OpenStream(ctx context.Context, deviceID string) (client.EventStream, error)
	RegisterDevice(ctx context.Context, deviceID string) (*model.Device, error)
	GetPreferences(ctx context.Context, deviceID string) (*model.Preferences, error)
	SavePreferences(ctx context.Context, deviceID string, settings model.Settings) (*model.Preferences, error)
	Heartbeat(ctx context.Context, deviceID, itemID string) (*model.Session, error)
	ReleaseSession(ctx context.Context, deviceID, itemID string) error
}

// Config configures an Engine. DeviceID and Backend are required.
type Config struct {
	DeviceID string
	Backend  Backend
	Cache    Cache
	Clock    clock.Clock
	Logger   *slog.Logger

	Backoff           Backoff
	QuietPeriod       time.Duration
	HeartbeatInterval time.Duration
	ReleaseTimeout    time.Duration
	// IdleTimeout drops a connected stream that delivers nothing, not even
	// a keepalive ping, for this long. Negative disables the check.
	IdleTimeout time.Duration

	// OnStateChange is called on every connection state transition, from
	// the goroutine that caused it. It must not call back into the engine.
	OnStateChange func(State)
	// OnSettings is called whenever the local settings view changes,
	// whether by a local edit, a load, or a refetch after a remote update.
	OnSettings func(model.Settings)
}

// Engine is the client-side sync engine. Create one with New, call Start
// to open the stream, and Close to tear everything down.
type Engine struct {
	deviceID string
	backend  Backend
	cache    Cache
	clock    clock.Clock
	logger   *slog.Logger

	backoff           Backoff
	quietPeriod       time.Duration
	heartbeatInterval time.Duration
	releaseTimeout    time.Duration
	idleTimeout       time.Duration
	onStateChange     func(State)
	onSettings        func(model.Settings)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	started  bool
	closed   bool
	settings model.Settings
	// dirty is set by a local edit and cleared once an upload carrying
	// edit generation gen has succeeded.
	dirty    bool
	gen      uint64
	failures int
	quiet    clock.Timer
}

// New validates cfg and returns an engine in StateDisconnected. The
// settings writer starts immediately; the stream does not open until Start.
func New(cfg Config) (*Engine, error) {
	if err := model.ValidateDeviceID(cfg.DeviceID); err != nil {
		return nil, err
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("%w: backend is required", model.ErrValidation)
	}

	e := &Engine{
		deviceID:          cfg.DeviceID,
		backend:           cfg.Backend,
		cache:             cfg.Cache,
		clock:             cfg.Clock,
		logger:            cfg.Logger,
		backoff:           cfg.Backoff,
		quietPeriod:       cfg.QuietPeriod,
		heartbeatInterval: cfg.HeartbeatInterval,
		releaseTimeout:    cfg.ReleaseTimeout,
		idleTimeout:       cfg.IdleTimeout,
		onStateChange:     cfg.OnStateChange,
		onSettings:        cfg.OnSettings,
		settings:          model.DefaultSettings(),
	}
	if e.cache == nil {
		e.cache = nopCache{}
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.quietPeriod <= 0 {
		e.quietPeriod = DefaultQuietPeriod
	}
	if e.heartbeatInterval <= 0 {
		e.heartbeatInterval = DefaultHeartbeatInterval
	}
	if e.releaseTimeout <= 0 {
		e.releaseTimeout = DefaultReleaseTimeout
	}
	if e.idleTimeout == 0 {
		e.idleTimeout = DefaultIdleTimeout
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.quiet = clock.NewStoppedTimer(e.clock)

	e.wg.Add(1)
	go e.writeLoop()
	return e, nil
}

// DeviceID returns the device this engine syncs for.
func (e *Engine) DeviceID() string { return e.deviceID }

// State returns the current connection state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start opens the event stream in the background. It returns ErrClosed
// after Close and is a no-op if already started.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.started {
		return nil
	}
	e.started = true
	e.wg.Add(1)
	go e.run()
	return nil
}

// Close tears the engine down: it cancels the stream, any pending retry
// timer, the settings writer and all heartbeat loops, then waits for them to
// exit. After Close returns the engine makes no further reconnect attempts
// and no further cache mutations. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	prev := e.state
	e.state = StateDisconnected
	e.quiet.Stop()
	cb := e.onStateChange
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()

	if prev != StateDisconnected && cb != nil {
		cb(StateDisconnected)
	}
	return nil
}

// setState records a transition and notifies the callback. Once closed the
// state stays disconnected.
func (e *Engine) setState(s State) {
	e.mu.Lock()
	if e.closed || e.state == s {
		e.mu.Unlock()
		return
	}
	e.state = s
	cb := e.onStateChange
	e.mu.Unlock()

	e.logger.Debug("sync: state change", "state", s.String())
	if cb != nil {
		cb(s)
	}
}

// run is the connection state machine:
// connecting -> connected -> (error) -> retrying -> connecting ...
func (e *Engine) run() {
	defer e.wg.Done()

	attempt := 0
	for {
		if e.ctx.Err() != nil {
			return
		}
		e.setState(StateConnecting)

		err := e.stream(func() { attempt = 0 })
		if e.ctx.Err() != nil {
			return
		}

		attempt++
		delay := e.backoff.Delay(attempt)
		e.setState(StateRetrying)
		e.logger.Warn("sync: stream lost, retrying", "error", err, "attempt", attempt, "delay", delay)

		timer := e.clock.NewTimer(delay)
		select {
		case <-e.ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
	}
}

// stream opens one stream, waits for the handshake, then dispatches events
// until the stream fails. onHandshake runs once the server acknowledges.
func (e *Engine) stream(onHandshake func()) error {
	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()

	s, err := e.backend.OpenStream(ctx, e.deviceID)
	if err != nil {
		return err
	}
	defer s.Close()
	// Unblock a pending Next as soon as the engine is torn down.
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	hello, err := s.Next()
	if err != nil {
		return fmt.Errorf("awaiting handshake: %w", err)
	}
	if hello.Type != model.EventConnected {
		return fmt.Errorf("awaiting handshake: got %q", hello.Type)
	}
	onHandshake()
	e.setState(StateConnected)

	idle, idled := e.watchIdle(ctx, cancel)
	defer idle.Stop()

	for {
		evt, err := s.Next()
		if err != nil {
			if idled.Load() {
				return errStreamIdle
			}
			if errors.Is(err, io.EOF) {
				return errStreamEnded
			}
			return err
		}
		if e.ctx.Err() != nil {
			return e.ctx.Err()
		}
		idle.Reset(e.idleTimeout)
		e.handle(evt)
	}
}

// watchIdle arms the idle deadline for one stream. When it fires before ctx
// ends, the flag is set and cancel tears the stream down. With the check
// disabled the returned timer is never armed.
func (e *Engine) watchIdle(ctx context.Context, cancel context.CancelFunc) (clock.Timer, *atomic.Bool) {
	idled := new(atomic.Bool)
	if e.idleTimeout < 0 {
		return noopTimer{}, idled
	}
	idle := e.clock.NewTimer(e.idleTimeout)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-ctx.Done():
		case <-idle.C():
			idled.Store(true)
			cancel()
		}
	}()
	return idle, idled
}

// noopTimer stands in for the idle timer when the check is disabled.
type noopTimer struct{}

func (noopTimer) C() <-chan time.Time      { return nil }
func (noopTimer) Stop() bool               { return false }
func (noopTimer) Reset(time.Duration) bool { return false }

// handle maps one event onto its cache effect.
func (e *Engine) handle(evt model.Event) {
	switch evt.Type {
	case model.EventItemLocked, model.EventItemUnlocked, model.EventItemDeleted:
		id, err := evt.ItemID()
		if err != nil {
			e.logger.Debug("sync: item event without id", "type", evt.Type, "error", err)
		} else {
			e.cache.InvalidateItem(id)
		}
		e.cache.InvalidateItemList()
	case model.EventSettingsUpdated:
		e.onRemoteSettings(evt)
	case model.EventPing, model.EventConnected:
		// Liveness only.
	default:
		e.logger.Debug("sync: ignoring unknown event type", "type", evt.Type)
	}
}

// onRemoteSettings refetches settings after another writer changed them.
// Events naming a different device are not ours. While a local edit is
// waiting to be uploaded the refetch is skipped: the pending upload wins.
func (e *Engine) onRemoteSettings(evt model.Event) {
	if len(evt.Payload) > 0 {
		var p model.SettingsPayload
		if err := json.Unmarshal(evt.Payload, &p); err == nil && p.DeviceID != "" && p.DeviceID != e.deviceID {
			return
		}
	}

	e.mu.Lock()
	pending := e.dirty
	e.mu.Unlock()
	if pending {
		e.logger.Debug("sync: remote settings update skipped, local write pending")
		return
	}

	prefs, err := e.backend.GetPreferences(e.ctx, e.deviceID)
	if err != nil {
		if e.ctx.Err() == nil {
			e.logger.Warn("sync: settings refetch failed", "error", err)
		}
		return
	}

	e.mu.Lock()
	if e.dirty || e.closed {
		e.mu.Unlock()
		return
	}
	e.settings = prefs.Settings
	cb := e.onSettings
	e.mu.Unlock()

	if cb != nil {
		cb(prefs.Settings)
	}
}
