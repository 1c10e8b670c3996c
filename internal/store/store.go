package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// Store defines the persistence interface for devices, their synced
// preferences, and presence sessions. Lookups of missing records return an
// error wrapping model.ErrNotFound.
type Store interface {
	// Devices
	EnsureDevice(ctx context.Context, id string) (*model.Device, error)
	GetDevice(ctx context.Context, id string) (*model.Device, error)
	ListDevices(ctx context.Context) ([]*model.Device, error)

	// Preferences
	GetPreferences(ctx context.Context, deviceID string) (*model.Preferences, error)
	// UpsertPreferences creates the device on the fly if it is unknown.
	UpsertPreferences(ctx context.Context, prefs *model.Preferences) error
	ListPreferences(ctx context.Context) ([]*model.Preferences, error)

	SessionStore

	// Lifecycle
	Close() error
}

// SessionStore is the slice of Store the presence tracker depends on.
type SessionStore interface {
	// DeviceExists reports whether a device is registered.
	DeviceExists(ctx context.Context, deviceID string) (bool, error)
	// UpsertSession stores s, keeping the later of the stored and given
	// LastActiveAt. It returns the session as stored.
	UpsertSession(ctx context.Context, s model.Session) (model.Session, error)
	// DeleteSession removes a session. Missing sessions are not an error.
	DeleteSession(ctx context.Context, deviceID, itemID string) error
	// ListSessions returns every stored session for an item, stale or not.
	ListSessions(ctx context.Context, itemID string) ([]model.Session, error)
	// DeleteSessionsBefore hard-deletes sessions last active before cutoff
	// and returns how many were removed.
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error)
}
