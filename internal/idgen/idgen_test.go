package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewDeviceID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(DevicePrefix) + `[a-zA-Z0-9]{16}$`)
	for i := 0; i < 100; i++ {
		id, err := NewDeviceID()
		if err != nil {
			t.Fatalf("NewDeviceID() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("NewDeviceID() = %q, does not match %s", id, pattern)
		}
	}
}

func TestNewDeviceID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := NewDeviceID()
		if err != nil {
			t.Fatalf("NewDeviceID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewSubscriberID(t *testing.T) {
	id := NewSubscriberID()
	if !strings.HasPrefix(id, SubscriberPrefix) {
		t.Errorf("NewSubscriberID() = %q, want prefix %q", id, SubscriberPrefix)
	}
	if len(id) != len(SubscriberPrefix)+Length {
		t.Errorf("NewSubscriberID() length = %d, want %d", len(id), len(SubscriberPrefix)+Length)
	}
}
