package syncengine

import (
	"context"
	"errors"
	"sync"

	"github.com/alfredjeanlab/vaultsync/internal/client"
	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// ViewItem marks this device as viewing itemID. It sends a heartbeat right
// away and then one per heartbeat interval until the returned release
// function is called, ctx ends, or the engine closes. Release stops the
// heartbeats and tells the server the session is over without waiting for
// the answer; calling it more than once is harmless.
func (e *Engine) ViewItem(ctx context.Context, itemID string) (release func(), err error) {
	if err := model.ValidateSessionKey(e.deviceID, itemID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	loopCtx, cancel := context.WithCancel(e.ctx)
	stop := context.AfterFunc(ctx, cancel)
	e.wg.Add(1)
	e.mu.Unlock()

	go e.heartbeatLoop(loopCtx, itemID)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			cancel()
			e.releaseSession(itemID)
		})
	}, nil
}

func (e *Engine) heartbeatLoop(ctx context.Context, itemID string) {
	defer e.wg.Done()

	ticker := e.clock.NewTicker(e.heartbeatInterval)
	defer ticker.Stop()

	e.heartbeat(ctx, itemID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			e.heartbeat(ctx, itemID)
		}
	}
}

// heartbeat sends one heartbeat. An unknown device is registered and the
// heartbeat retried once; any other failure waits for the next tick.
func (e *Engine) heartbeat(ctx context.Context, itemID string) {
	_, err := e.backend.Heartbeat(ctx, e.deviceID, itemID)
	if err != nil && isNotFound(err) {
		if _, regErr := e.backend.RegisterDevice(ctx, e.deviceID); regErr != nil {
			err = regErr
		} else {
			_, err = e.backend.Heartbeat(ctx, e.deviceID, itemID)
		}
	}
	if err != nil && ctx.Err() == nil {
		e.logger.Warn("sync: heartbeat failed", "item", itemID, "error", err)
	}
}

// releaseSession is fire-and-forget. Once the engine is closing the release
// is skipped; the server's TTL expires the session instead.
func (e *Engine) releaseSession(itemID string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.releaseTimeout)
		defer cancel()
		if err := e.backend.ReleaseSession(ctx, e.deviceID, itemID); err != nil {
			e.logger.Debug("sync: session release failed", "item", itemID, "error", err)
		}
	}()
}

func isNotFound(err error) bool {
	return client.IsNotFound(err) || errors.Is(err, model.ErrNotFound)
}
