// Package idgen generates short, URL-safe identifiers for devices and stream
// subscribers.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DevicePrefix     = "dev-"
	SubscriberPrefix = "sub-"
)

// Alphabet is URL- and header-safe so device IDs can travel as query params.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 16

// NewDeviceID returns a fresh device fingerprint. Clients persist it so the
// same device keeps the same ID across sessions.
func NewDeviceID() (string, error) {
	return withPrefix(DevicePrefix)
}

// NewSubscriberID returns an ID used to tag a stream subscriber in logs.
// Generation failures fall back to a fixed tag rather than failing Subscribe.
func NewSubscriberID() string {
	id, err := withPrefix(SubscriberPrefix)
	if err != nil {
		return SubscriberPrefix + "unknown"
	}
	return id
}

func withPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
