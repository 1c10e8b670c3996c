package model

import "time"

// Device is a client keyed by a stable per-browser fingerprint.
type Device struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Settings is the user-facing settings object synced across devices.
type Settings struct {
	Theme              string `json:"theme,omitempty"`      // "light", "dark", "system"
	Language           string `json:"language,omitempty"`   // BCP 47 tag, e.g. "en", "zh-CN"
	TimeFormat         string `json:"timeFormat,omitempty"` // "12h" or "24h"
	DefaultLockMinutes int    `json:"defaultLockMinutes,omitempty"`
	ShowCountdown      bool   `json:"showCountdown"`
	ConfirmDelete      bool   `json:"confirmDelete"`
	Notifications      bool   `json:"notifications"`
}

// DefaultSettings returns the settings a new device starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:              "system",
		Language:           "en",
		TimeFormat:         "24h",
		DefaultLockMinutes: 60,
		ShowCountdown:      true,
		ConfirmDelete:      true,
	}
}

// Preferences is the durable settings record of one device.
type Preferences struct {
	DeviceID  string    `json:"deviceId"`
	Settings  Settings  `json:"settings"`
	UpdatedAt time.Time `json:"updatedAt"`
}
