package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// handshakeFrame is the unnamed first message of every stream.
const handshakeFrame = "data: {\"type\":\"connected\"}\n\n"

// handleEventStream handles GET /events (SSE endpoint). The deviceId query
// parameter is required but does not filter: every stream receives every
// broadcast.
func (s *SyncServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)
	select {
	case <-sub.Done():
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	default:
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, handshakeFrame); err != nil {
		return
	}
	flusher.Flush()

	s.logger.Info("stream opened", "device_id", deviceID, "subscriber", sub.ID(), "subscribers", s.hub.Len())
	defer s.logger.Info("stream closed", "device_id", deviceID, "subscriber", sub.ID())

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			// Pruned by the hub (overflow) or hub closed.
			return
		case evt := <-sub.Events():
			if err := writeSSEEvent(w, evt); err != nil {
				s.logger.Debug("stream write failed", "subscriber", sub.ID(), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single named SSE event. An event without a payload
// is sent with an empty JSON object. A payload spanning several lines gets
// one data field per line, which readers join back with newlines.
func writeSSEEvent(w io.Writer, evt model.Event) error {
	data := evt.Payload
	if len(data) == 0 {
		data = []byte("{}")
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "event: %s\n", evt.Type)
	for _, line := range bytes.Split(data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(bytes.TrimSuffix(line, []byte("\r")))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := w.Write(b.Bytes())
	return err
}
