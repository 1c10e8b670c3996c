package syncengine

// State is the connection state of the event stream.
type State int

const (
	// StateDisconnected is both the initial and the terminal state.
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}
