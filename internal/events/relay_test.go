package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// chanBus is an in-memory BusSubscriber for relay tests.
type chanBus struct {
	ch chan []byte
}

func (b *chanBus) Subscribe(string) (<-chan []byte, func(), error) {
	return b.ch, func() {}, nil
}

func (b *chanBus) Close() error { return nil }

func envelope(t *testing.T, origin string, evt model.Event) []byte {
	t.Helper()
	data, err := json.Marshal(Envelope{Origin: origin, Event: evt})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}

func TestRelay_SkipsOwnOriginAndPings(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	bus := &chanBus{ch: make(chan []byte, 8)}
	relay := NewRelay(bus, hub, "me", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	bus.ch <- envelope(t, "me", unlocked("own"))
	bus.ch <- envelope(t, "other", model.Event{Type: model.EventPing, Payload: []byte(`{}`)})
	bus.ch <- []byte("not json")
	bus.ch <- envelope(t, "other", model.Event{Type: "mystery"})
	bus.ch <- envelope(t, "other", unlocked("remote"))

	evt := receive(t, sub)
	if id, _ := evt.ItemID(); id != "remote" {
		t.Fatalf("relayed item = %q, want remote", id)
	}
	expectNone(t, sub)

	close(bus.ch)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop when bus closed")
	}
}

func TestRelay_AcrossInstancesOverNATS(t *testing.T) {
	url := startTestNATS(t)

	// Instance B runs a hub with a relay; instance A only publishes.
	hubB := NewHub()
	subB := hubB.Subscribe()
	defer hubB.Unsubscribe(subB)

	busB, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer busB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewRelay(busB, hubB, "b", nil).Run(ctx) }()

	pubA, err := NewNATSPublisher(url, "a")
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pubA.Close()

	// Give the relay subscription time to register.
	time.Sleep(100 * time.Millisecond)

	if err := pubA.Publish(ctx, unlocked("x1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	pubA.conn.Flush()

	if id, _ := receive(t, subB).ItemID(); id != "x1" {
		t.Fatalf("relayed item = %q, want x1", id)
	}
}
