package server

import (
	"net/http"
)

type heartbeatRequest struct {
	DeviceID string `json:"deviceId"`
	ItemID   string `json:"itemId"`
}

// viewersResponse is the body of GET /sessions.
type viewersResponse struct {
	ItemID  string   `json:"itemId"`
	Viewers []string `json:"viewers"`
	Count   int      `json:"count"`
}

// handleHeartbeat handles POST /sessions.
func (s *SyncServer) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.presence.Heartbeat(r.Context(), req.DeviceID, req.ItemID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleListViewers handles GET /sessions?itemId=.
func (s *SyncServer) handleListViewers(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("itemId")
	live, err := s.presence.ListLive(r.Context(), itemID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	resp := viewersResponse{ItemID: itemID, Viewers: make([]string, 0, len(live)), Count: len(live)}
	for _, sess := range live {
		resp.Viewers = append(resp.Viewers, sess.DeviceID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReleaseSession handles DELETE /sessions?deviceId=&itemId=. It
// answers 200 whether or not the session existed.
func (s *SyncServer) handleReleaseSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := s.presence.Release(r.Context(), q.Get("deviceId"), q.Get("itemId")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"released": true})
}
