// Package backup periodically exports devices and their synced preferences
// as JSONL and writes the export to one or more destinations. Presence
// sessions are ephemeral and never exported.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/store"
)

// FormatVersion is written into every export header.
const FormatVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version         string    `json:"version"`
	Type            string    `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	DeviceCount     int       `json:"device_count"`
	PreferenceCount int       `json:"preference_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every device and preferences record from the store as
// JSONL to w. Records are sorted by device ID. now stamps the header.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer, now time.Time) error {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	prefs, err := s.ListPreferences(ctx)
	if err != nil {
		return fmt.Errorf("list preferences: %w", err)
	}
	sort.Slice(prefs, func(i, j int) bool { return prefs[i].DeviceID < prefs[j].DeviceID })

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:         FormatVersion,
		Type:            "header",
		Timestamp:       now.UTC(),
		DeviceCount:     len(devices),
		PreferenceCount: len(prefs),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, d := range devices {
		if err := enc.Encode(record{Type: "device", Data: d}); err != nil {
			return fmt.Errorf("encode device %s: %w", d.ID, err)
		}
	}
	for _, p := range prefs {
		if err := enc.Encode(record{Type: "preferences", Data: p}); err != nil {
			return fmt.Errorf("encode preferences %s: %w", p.DeviceID, err)
		}
	}
	return nil
}
