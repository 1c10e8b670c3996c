package server

import (
	"fmt"
	"net/http"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// savePreferencesRequest is the JSON body for POST /preferences: the device
// ID alongside the flattened settings fields.
type savePreferencesRequest struct {
	DeviceID string `json:"deviceId"`
	model.Settings
}

// handleSavePreferences handles POST /preferences. Unknown devices are
// registered on the fly. Nothing is broadcast: the writing client already
// holds these settings.
func (s *SyncServer) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var req savePreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateDeviceID(req.DeviceID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := model.ValidateSettings(req.Settings); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	prefs := &model.Preferences{DeviceID: req.DeviceID, Settings: req.Settings}
	if err := s.store.UpsertPreferences(r.Context(), prefs); err != nil {
		s.writeDomainError(w, r, fmt.Errorf("save preferences: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// handleGetPreferences handles GET /preferences?deviceId=.
func (s *SyncServer) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	if err := model.ValidateDeviceID(deviceID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	prefs, err := s.store.GetPreferences(r.Context(), deviceID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
