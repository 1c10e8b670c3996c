package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// Relay feeds events published by other server instances into the local
// hub. Envelopes stamped with the relay's own origin are skipped, since the
// local hub already saw them.
type Relay struct {
	sub    BusSubscriber
	hub    *Hub
	origin string
	logger *slog.Logger
}

// NewRelay returns a relay from sub into hub.
func NewRelay(sub BusSubscriber, hub *Hub, origin string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{sub: sub, hub: hub, origin: origin, logger: logger}
}

// Run blocks, relaying events until ctx is done or the bus channel closes.
func (r *Relay) Run(ctx context.Context) error {
	ch, cancel, err := r.sub.Subscribe(SubjectAll)
	if err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(data)
		}
	}
}

func (r *Relay) handle(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.logger.Warn("relay: dropping malformed envelope", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	if !env.Event.Type.IsValid() {
		r.logger.Debug("relay: ignoring unknown event type", "type", env.Event.Type, "origin", env.Origin)
		return
	}
	if env.Event.Type == model.EventPing {
		// Each instance runs its own keepalive.
		return
	}
	n := r.hub.Publish(env.Event)
	r.logger.Debug("relay: delivered remote event", "type", env.Event.Type, "origin", env.Origin, "subscribers", n)
}
