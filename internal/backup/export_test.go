package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/clock"
	"github.com/alfredjeanlab/vaultsync/internal/model"
	"github.com/alfredjeanlab/vaultsync/internal/store/memory"
)

var t0 = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New(clock.NewFake(t0))
	ctx := context.Background()
	// Registered out of order to check sorting.
	for _, id := range []string{"dev-z", "dev-a"} {
		if _, err := st.EnsureDevice(ctx, id); err != nil {
			t.Fatalf("EnsureDevice: %v", err)
		}
	}
	err := st.UpsertPreferences(ctx, &model.Preferences{
		DeviceID: "dev-z",
		Settings: model.Settings{Theme: "dark", Language: "de"},
	})
	if err != nil {
		t.Fatalf("UpsertPreferences: %v", err)
	}
	return st
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), memory.New(nil), &buf, t0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}
	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != FormatVersion || h.Type != "header" || h.DeviceCount != 0 || h.PreferenceCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if !h.Timestamp.Equal(t0) {
		t.Fatalf("timestamp = %v, want %v", h.Timestamp, t0)
	}
}

func TestExportJSONL_DevicesAndPreferences(t *testing.T) {
	st := newSeededStore(t)

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf, t0); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// header + 2 devices + 1 preferences
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.DeviceCount != 2 || h.PreferenceCount != 1 {
		t.Fatalf("unexpected header: %+v", h)
	}

	var rec struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	wantTypes := []string{"device", "device", "preferences"}
	wantIDs := []string{"dev-a", "dev-z", "dev-z"}
	for i, line := range lines[1:] {
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d: %v", i+1, err)
		}
		if rec.Type != wantTypes[i] {
			t.Fatalf("line %d type = %q, want %q", i+1, rec.Type, wantTypes[i])
		}
		var id struct {
			ID       string `json:"id"`
			DeviceID string `json:"deviceId"`
		}
		if err := json.Unmarshal(rec.Data, &id); err != nil {
			t.Fatalf("line %d data: %v", i+1, err)
		}
		if got := id.ID + id.DeviceID; got != wantIDs[i] {
			t.Fatalf("line %d id = %q, want %q", i+1, got, wantIDs[i])
		}
	}

	var prefs struct {
		Data model.Preferences `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[3]), &prefs); err != nil {
		t.Fatalf("unmarshal preferences: %v", err)
	}
	if prefs.Data.Settings.Theme != "dark" || prefs.Data.Settings.Language != "de" {
		t.Fatalf("unexpected settings: %+v", prefs.Data.Settings)
	}
}
