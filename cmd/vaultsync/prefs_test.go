package main

import (
	"testing"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

func TestApplySetting(t *testing.T) {
	for _, tc := range []struct {
		key, value string
		check      func(model.Settings) bool
	}{
		{"theme", "dark", func(s model.Settings) bool { return s.Theme == "dark" }},
		{"language", "zh-CN", func(s model.Settings) bool { return s.Language == "zh-CN" }},
		{"timeFormat", "12h", func(s model.Settings) bool { return s.TimeFormat == "12h" }},
		{"defaultLockMinutes", "90", func(s model.Settings) bool { return s.DefaultLockMinutes == 90 }},
		{"showCountdown", "false", func(s model.Settings) bool { return !s.ShowCountdown }},
		{"confirmDelete", "false", func(s model.Settings) bool { return !s.ConfirmDelete }},
		{"notifications", "true", func(s model.Settings) bool { return s.Notifications }},
	} {
		t.Run(tc.key, func(t *testing.T) {
			s := model.DefaultSettings()
			if err := applySetting(&s, tc.key, tc.value); err != nil {
				t.Fatalf("applySetting: %v", err)
			}
			if !tc.check(s) {
				t.Fatalf("%s=%s not applied: %+v", tc.key, tc.value, s)
			}
		})
	}
}

func TestApplySetting_Errors(t *testing.T) {
	s := model.DefaultSettings()
	for _, tc := range [][2]string{
		{"colour", "blue"},
		{"defaultLockMinutes", "an hour"},
		{"notifications", "sometimes"},
	} {
		if err := applySetting(&s, tc[0], tc[1]); err == nil {
			t.Errorf("%s=%s: expected error", tc[0], tc[1])
		}
	}
	if s != model.DefaultSettings() {
		t.Fatalf("failed applies changed settings: %+v", s)
	}
}

func TestBuildEvent(t *testing.T) {
	evt, err := buildEvent(model.EventItemLocked, "x1", "")
	if err != nil || string(evt.Payload) != `{"id":"x1"}` {
		t.Fatalf("item event = %s, %v", evt.Payload, err)
	}
	if _, err := buildEvent(model.EventItemDeleted, "", ""); err == nil {
		t.Fatal("item event without ID should fail")
	}

	evt, err = buildEvent(model.EventSettingsUpdated, "", "dev-a")
	if err != nil || string(evt.Payload) != `{"deviceId":"dev-a"}` {
		t.Fatalf("settings event = %s, %v", evt.Payload, err)
	}

	evt, err = buildEvent(model.EventPing, "", "")
	if err != nil || len(evt.Payload) != 0 {
		t.Fatalf("ping = %s, %v", evt.Payload, err)
	}

	if _, err := buildEvent("item-renamed", "x1", ""); err == nil {
		t.Fatal("unknown type should fail")
	}
}
