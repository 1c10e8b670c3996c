package syncengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/client"
	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// saveTimeout bounds a single settings upload.
const saveTimeout = 10 * time.Second

// Settings returns a copy of the current local settings view.
func (e *Engine) Settings() model.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Dirty reports whether a local edit is waiting to be uploaded.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// LoadSettings fetches the stored settings and installs them as the local
// view without scheduling a write. A device with nothing stored gets the
// defaults. A pending local edit is left in place.
func (e *Engine) LoadSettings(ctx context.Context) (model.Settings, error) {
	prefs, err := e.backend.GetPreferences(ctx, e.deviceID)
	var loaded model.Settings
	switch {
	case err == nil:
		loaded = prefs.Settings
	case client.IsNotFound(err) || errors.Is(err, model.ErrNotFound):
		loaded = model.DefaultSettings()
	default:
		return model.Settings{}, fmt.Errorf("loading settings: %w", err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return model.Settings{}, ErrClosed
	}
	if e.dirty {
		current := e.settings
		e.mu.Unlock()
		return current, nil
	}
	e.settings = loaded
	cb := e.onSettings
	e.mu.Unlock()

	if cb != nil {
		cb(loaded)
	}
	return loaded, nil
}

// UpdateSettings applies fn to the local settings view and schedules an
// upload once edits have been quiet for the configured period. Each call
// restarts the quiet period, so a burst of edits produces one write carrying
// the final state.
func (e *Engine) UpdateSettings(fn func(*model.Settings)) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	next := e.settings
	fn(&next)
	if err := model.ValidateSettings(next); err != nil {
		e.mu.Unlock()
		return err
	}
	e.settings = next
	e.dirty = true
	e.gen++
	e.failures = 0
	e.quiet.Reset(e.quietPeriod)
	cb := e.onSettings
	e.mu.Unlock()

	if cb != nil {
		cb(next)
	}
	return nil
}

// writeLoop uploads settings each time the quiet timer fires.
func (e *Engine) writeLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.quiet.C():
			e.flush()
		}
	}
}

// flush uploads the current snapshot. A failed upload is retried with
// backoff unless a newer edit has already re-armed the timer.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.closed || !e.dirty {
		e.mu.Unlock()
		return
	}
	snapshot := e.settings
	gen := e.gen
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(e.ctx, saveTimeout)
	_, err := e.backend.SavePreferences(ctx, e.deviceID, snapshot)
	cancel()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if err != nil {
		if e.gen != gen {
			// A newer edit already restarted the quiet period.
			return
		}
		e.failures++
		delay := e.backoff.Delay(e.failures)
		e.logger.Warn("sync: settings upload failed", "error", err, "attempt", e.failures, "retry_in", delay)
		e.quiet.Reset(delay)
		return
	}
	e.failures = 0
	if e.gen == gen {
		e.dirty = false
	}
	e.logger.Debug("sync: settings uploaded", "device", e.deviceID)
}
