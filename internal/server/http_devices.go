package server

import (
	"net/http"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

type registerDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

// handleRegisterDevice handles POST /devices. Registering an existing
// device refreshes its last-seen time.
func (s *SyncServer) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateDeviceID(req.DeviceID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	d, err := s.store.EnsureDevice(r.Context(), req.DeviceID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
