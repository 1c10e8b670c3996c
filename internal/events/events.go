// Package events holds the broadcast side of vaultsync: the in-process Hub
// that fans events out to open streams, and the optional NATS transport
// that relays events between server instances.
package events

import (
	"context"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "vaultsync.events."

// SubjectAll matches every vaultsync event subject.
const SubjectAll = SubjectPrefix + ">"

// Subject returns the NATS subject for an event type.
func Subject(t model.EventType) string {
	return SubjectPrefix + string(t)
}

// Publisher forwards events beyond the local hub.
type Publisher interface {
	Publish(ctx context.Context, evt model.Event) error
	Close() error
}

// Envelope is the wire form of an event on the bus. Origin identifies the
// publishing server instance so a relay can skip its own echoes.
type Envelope struct {
	Origin string      `json:"origin"`
	Event  model.Event `json:"event"`
}
