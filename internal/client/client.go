// Package client provides a transport-agnostic interface for the vaultsync
// service and an HTTP/JSON implementation that talks to its REST and SSE
// endpoints.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// SyncClient is the interface the CLI and the sync engine use to talk to the
// vaultsync server. It is implemented by HTTPClient.
type SyncClient interface {
	// Devices
	RegisterDevice(ctx context.Context, deviceID string) (*model.Device, error)

	// Preferences
	GetPreferences(ctx context.Context, deviceID string) (*model.Preferences, error)
	SavePreferences(ctx context.Context, deviceID string, settings model.Settings) (*model.Preferences, error)

	// Presence
	Heartbeat(ctx context.Context, deviceID, itemID string) (*model.Session, error)
	ReleaseSession(ctx context.Context, deviceID, itemID string) error
	ListViewers(ctx context.Context, itemID string) (*Viewers, error)

	// Events
	Publish(ctx context.Context, evt model.Event) (int, error)
	OpenStream(ctx context.Context, deviceID string) (EventStream, error)

	// Health
	Health(ctx context.Context) (*HealthStatus, error)

	// Lifecycle
	Close() error
}

// EventStream yields events from an open server stream. The first event of
// every stream is the handshake marker model.EventConnected.
type EventStream interface {
	// Next blocks until the next event arrives. It returns io.EOF when the
	// server ends the stream cleanly.
	Next() (model.Event, error)
	Close() error
}

// Viewers is the live-viewer listing for one item.
type Viewers struct {
	ItemID  string   `json:"itemId"`
	Viewers []string `json:"viewers"`
	Count   int      `json:"count"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
