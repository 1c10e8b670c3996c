package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// publishEventRequest is the JSON body for POST /events.
type publishEventRequest struct {
	Type    model.EventType `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// handlePublishEvent handles POST /events. The vault API calls it after a
// successful mutation to fan the change out to every open stream.
func (s *SyncServer) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	var req publishEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	n, err := s.Broadcast(r.Context(), model.Event{Type: req.Type, Payload: req.Payload})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"delivered": n})
}
