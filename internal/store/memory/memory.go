// Package memory implements store.Store in process memory. It backs the
// server when no database is configured and serves as the test double for
// packages that depend on a Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/clock"
	"github.com/alfredjeanlab/vaultsync/internal/model"
	"github.com/alfredjeanlab/vaultsync/internal/store"
)

type sessionKey struct {
	deviceID string
	itemID   string
}

// Store is a mutex-guarded in-memory store.Store.
type Store struct {
	mu       sync.RWMutex
	clock    clock.Clock
	devices  map[string]*model.Device
	prefs    map[string]*model.Preferences
	sessions map[sessionKey]model.Session
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store. A nil clock means the real clock.
func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.Real()
	}
	return &Store{
		clock:    c,
		devices:  make(map[string]*model.Device),
		prefs:    make(map[string]*model.Preferences),
		sessions: make(map[sessionKey]model.Session),
	}
}

func (s *Store) Close() error { return nil }

// ensureDeviceLocked returns the device, creating it if needed. Caller holds s.mu.
func (s *Store) ensureDeviceLocked(id string) *model.Device {
	now := s.clock.Now().UTC()
	d, ok := s.devices[id]
	if !ok {
		d = &model.Device{ID: id, CreatedAt: now}
		s.devices[id] = d
	}
	d.LastSeenAt = now
	return d
}

func (s *Store) EnsureDevice(_ context.Context, id string) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *s.ensureDeviceLocked(id)
	return &d, nil
}

func (s *Store) GetDevice(_ context.Context, id string) (*model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %q: %w", id, model.ErrNotFound)
	}
	clone := *d
	return &clone, nil
}

func (s *Store) ListDevices(_ context.Context) ([]*model.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		clone := *d
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeviceExists(_ context.Context, deviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices[deviceID]
	return ok, nil
}

func (s *Store) GetPreferences(_ context.Context, deviceID string) (*model.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[deviceID]
	if !ok {
		return nil, fmt.Errorf("preferences for %q: %w", deviceID, model.ErrNotFound)
	}
	clone := *p
	return &clone, nil
}

func (s *Store) UpsertPreferences(_ context.Context, prefs *model.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureDeviceLocked(prefs.DeviceID)
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = s.clock.Now().UTC()
	}
	clone := *prefs
	s.prefs[prefs.DeviceID] = &clone
	return nil
}

func (s *Store) ListPreferences(_ context.Context) ([]*model.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Preferences, 0, len(s.prefs))
	for _, p := range s.prefs {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (s *Store) UpsertSession(_ context.Context, sess model.Session) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{sess.DeviceID, sess.ItemID}
	if cur, ok := s.sessions[key]; ok && cur.LastActiveAt.After(sess.LastActiveAt) {
		return cur, nil
	}
	s.sessions[key] = sess
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, deviceID, itemID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionKey{deviceID, itemID})
	s.mu.Unlock()
	return nil
}

func (s *Store) ListSessions(_ context.Context, itemID string) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Session
	for k, sess := range s.sessions {
		if k.itemID == itemID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (s *Store) DeleteSessionsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, sess := range s.sessions {
		if sess.LastActiveAt.Before(cutoff) {
			delete(s.sessions, k)
			n++
		}
	}
	return n, nil
}
