package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/vaultsync/internal/events"
	"github.com/alfredjeanlab/vaultsync/internal/model"
	"github.com/alfredjeanlab/vaultsync/internal/presence"
	"github.com/alfredjeanlab/vaultsync/internal/store"
)

// SyncServer owns the broadcast hub and presence tracker and exposes them
// over HTTP and gRPC.
type SyncServer struct {
	store     store.Store
	hub       *events.Hub
	presence  *presence.Tracker
	publisher events.Publisher
	logger    *slog.Logger
}

// Option configures a SyncServer.
type Option func(*SyncServer)

// WithPublisher forwards every broadcast to an external bus in addition to
// the local hub.
func WithPublisher(p events.Publisher) Option {
	return func(s *SyncServer) { s.publisher = p }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SyncServer) { s.logger = l }
}

// NewSyncServer returns a server over the given store, hub and tracker.
func NewSyncServer(st store.Store, hub *events.Hub, tracker *presence.Tracker, opts ...Option) *SyncServer {
	s := &SyncServer{
		store:     st,
		hub:       hub,
		presence:  tracker,
		publisher: &events.NoopPublisher{},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Hub returns the server's broadcast hub.
func (s *SyncServer) Hub() *events.Hub { return s.hub }

// Broadcast validates evt and delivers it to every local subscriber, then
// forwards it to the external publisher. Publisher failures are logged and
// never returned. It returns the number of local subscribers reached.
func (s *SyncServer) Broadcast(ctx context.Context, evt model.Event) (int, error) {
	if !evt.Type.IsValid() {
		return 0, fmt.Errorf("%w: unknown event type %q", model.ErrValidation, evt.Type)
	}
	if len(evt.Payload) > 0 {
		// Each SSE frame carries the payload on one data line.
		var buf bytes.Buffer
		if err := json.Compact(&buf, evt.Payload); err != nil {
			return 0, fmt.Errorf("%w: payload is not valid JSON", model.ErrValidation)
		}
		evt.Payload = buf.Bytes()
	}
	if evt.Type.IsItemEvent() {
		if _, err := evt.ItemID(); err != nil {
			return 0, err
		}
	}

	n := s.hub.Publish(evt)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish event", "type", evt.Type, "error", err)
	}
	s.logger.Debug("event broadcast", "type", evt.Type, "subscribers", n)
	return n, nil
}

// httpStatus maps a domain error to an HTTP status code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
