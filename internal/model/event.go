package model

import (
	"encoding/json"
	"fmt"
)

// EventType names a broadcast event. It is also the SSE "event:" field.
type EventType string

const (
	EventSettingsUpdated EventType = "settings-updated"
	EventItemLocked      EventType = "item-locked"
	EventItemUnlocked    EventType = "item-unlocked"
	EventItemDeleted     EventType = "item-deleted"
	EventPing            EventType = "ping" // keepalive only; carries no business meaning

	// EventConnected is the handshake marker sent once as the unnamed first
	// message of a stream. It is never published through the hub.
	EventConnected EventType = "connected"
)

// publishable lists the types a caller may broadcast.
var publishable = map[EventType]bool{
	EventSettingsUpdated: true,
	EventItemLocked:      true,
	EventItemUnlocked:    true,
	EventItemDeleted:     true,
	EventPing:            true,
}

// IsValid reports whether t may be published through the hub.
func (t EventType) IsValid() bool { return publishable[t] }

// IsItemEvent reports whether t concerns a single vault item.
func (t EventType) IsItemEvent() bool {
	return t == EventItemLocked || t == EventItemUnlocked || t == EventItemDeleted
}

// Event is a typed, JSON-serializable broadcast. Events are never persisted.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into a new Event.
func NewEvent(t EventType, payload any) (Event, error) {
	if !t.IsValid() {
		return Event{}, fmt.Errorf("%w: unknown event type %q", ErrValidation, t)
	}
	if payload == nil {
		return Event{Type: t}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling %s payload: %w", t, err)
	}
	return Event{Type: t, Payload: data}, nil
}

// ItemPayload is the payload of item-locked, item-unlocked and item-deleted.
type ItemPayload struct {
	ID string `json:"id"`
}

// ItemID extracts the item ID from an item event payload.
func (e Event) ItemID() (string, error) {
	var p ItemPayload
	if len(e.Payload) == 0 {
		return "", fmt.Errorf("%w: %s event has no payload", ErrValidation, e.Type)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return "", fmt.Errorf("%w: decoding %s payload: %v", ErrValidation, e.Type, err)
	}
	if p.ID == "" {
		return "", fmt.Errorf("%w: %s payload missing id", ErrValidation, e.Type)
	}
	return p.ID, nil
}

// SettingsPayload is the payload of settings-updated.
type SettingsPayload struct {
	DeviceID string `json:"deviceId,omitempty"`
}
