package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// sseStream parses a text/event-stream body into model.Events.
type sseStream struct {
	body io.ReadCloser
	r    *bufio.Reader

	closeOnce sync.Once
}

func newSSEStream(body io.ReadCloser) *sseStream {
	return &sseStream{body: body, r: bufio.NewReader(body)}
}

// Next reads frames until one carries data. Comment lines and unknown
// fields are skipped. A frame without an event name is decoded as
// {"type": ...} with no payload, which is how the handshake arrives.
func (s *sseStream) Next() (model.Event, error) {
	var (
		name string
		data []string
	)
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return model.Event{}, io.EOF
			}
			if err != io.EOF {
				return model.Event{}, err
			}
			// Final line without a newline; the frame is incomplete.
			return model.Event{}, io.ErrUnexpectedEOF
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(data) == 0 {
				name = ""
				continue
			}
			return decodeFrame(name, strings.Join(data, "\n"))
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
}

func decodeFrame(name, data string) (model.Event, error) {
	if name != "" {
		return model.Event{Type: model.EventType(name), Payload: json.RawMessage(data)}, nil
	}
	var unnamed struct {
		Type model.EventType `json:"type"`
	}
	if err := json.Unmarshal([]byte(data), &unnamed); err != nil {
		return model.Event{}, fmt.Errorf("decoding unnamed frame: %w", err)
	}
	return model.Event{Type: unnamed.Type}, nil
}

func (s *sseStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
