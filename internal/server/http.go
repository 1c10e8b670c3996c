package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /health) must include
// a valid Authorization: Bearer <token> header.
func (s *SyncServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", s.handleEventStream)
	mux.HandleFunc("POST /events", s.handlePublishEvent)
	mux.HandleFunc("POST /sessions", s.handleHeartbeat)
	mux.HandleFunc("GET /sessions", s.handleListViewers)
	mux.HandleFunc("DELETE /sessions", s.handleReleaseSession)
	mux.HandleFunc("POST /preferences", s.handleSavePreferences)
	mux.HandleFunc("GET /preferences", s.handleGetPreferences)
	mux.HandleFunc("POST /devices", s.handleRegisterDevice)
	mux.HandleFunc("GET /health", s.handleHealth)
	return RecoveryMiddleware(AuthMiddleware(authToken, mux))
}

// handleHealth handles GET /health.
func (s *SyncServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "subscribers": s.hub.Len()})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps err onto a status code. Internal errors are logged
// and replaced with a generic message.
func (s *SyncServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
