// Package realtime maintains the persistent WebSocket connection to the
// prediction service.
package realtime

import "time"

// State is the lifecycle state of a Channel.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Event describes a state transition. RetryIn is non-zero when a reconnect
// has been scheduled; Attempt is the number of consecutive failures so far.
type Event struct {
	State   State
	Err     error
	Attempt int
	RetryIn time.Duration
}
