package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// maxIDLength bounds device and item identifiers.
const maxIDLength = 128

func validateID(ve *ValidationError, field, id string) {
	switch {
	case strings.TrimSpace(id) == "":
		ve.add(field, "is required")
	case len(id) > maxIDLength:
		ve.add(field, fmt.Sprintf("must be %d characters or fewer", maxIDLength))
	}
}

// ValidateSessionKey checks the (deviceId, itemId) pair of a presence record.
func ValidateSessionKey(deviceID, itemID string) error {
	var ve ValidationError
	validateID(&ve, "deviceId", deviceID)
	validateID(&ve, "itemId", itemID)
	return ve.orNil()
}

// ValidateDeviceID checks a device fingerprint.
func ValidateDeviceID(deviceID string) error {
	var ve ValidationError
	validateID(&ve, "deviceId", deviceID)
	return ve.orNil()
}

var (
	validThemes      = map[string]bool{"": true, "light": true, "dark": true, "system": true}
	validTimeFormats = map[string]bool{"": true, "12h": true, "24h": true}
)

// ValidateSettings checks a settings object. Empty enum fields are allowed
// and mean "client default".
func ValidateSettings(s Settings) error {
	var ve ValidationError
	if !validThemes[s.Theme] {
		ve.add("theme", fmt.Sprintf("invalid value %q", s.Theme))
	}
	if !validTimeFormats[s.TimeFormat] {
		ve.add("timeFormat", fmt.Sprintf("invalid value %q", s.TimeFormat))
	}
	if len(s.Language) > 35 {
		ve.add("language", "must be 35 characters or fewer")
	}
	// One year is the longest lock the vault offers.
	if s.DefaultLockMinutes < 0 || s.DefaultLockMinutes > 525600 {
		ve.add("defaultLockMinutes", fmt.Sprintf("must be between 0 and 525600, got %d", s.DefaultLockMinutes))
	}
	return ve.orNil()
}
