package interaction

import (
	"strings"
	"time"
)

// State is the client connection state reported by the transport.
type State uint8

const (
	StateInitial State = iota
	StateBootstrapRequired
	StateBootstrapping
	StateRegisterRequired
	StateRegistering
	StateReady
	// StateDisconnected is set locally when the transport goes away; the
	// transport never reports it.
	StateDisconnected
)

var stateLabels = [...]string{
	"STATE_INITIAL",
	"STATE_BOOTSTRAP_REQUIRED",
	"STATE_BOOTSTRAPPING",
	"STATE_REGISTER_REQUIRED",
	"STATE_REGISTERING",
	"STATE_READY",
	"STATE_DISCONNECTED",
}

var stateEvents = [...]string{
	"started",
	"bootstrapRequired",
	"bootstrapping",
	"registerRequired",
	"registering",
	"connected",
	"disconnected",
}

// String returns the event name of the state, e.g. "connected".
func (s State) String() string {
	if int(s) < len(stateEvents) {
		return stateEvents[s]
	}
	return "unknown"
}

// Label returns the transport label, e.g. "STATE_READY".
func (s State) Label() string {
	if int(s) < len(stateLabels) {
		return stateLabels[s]
	}
	return "STATE_UNKNOWN"
}

// IsRegistered returns true once bootstrapping is over.
func (s State) IsRegistered() bool {
	return s == StateRegisterRequired || s == StateRegistering || s == StateReady
}

// ParseState decodes a stateChanged body: a transport label such as
// "STATE_READY" or a single state number byte.
func ParseState(body []byte) (State, bool) {
	if len(body) == 1 && int(body[0]) < int(StateDisconnected) {
		return State(body[0]), true
	}
	label := strings.TrimSpace(string(body))
	for i, l := range stateLabels[:StateDisconnected] {
		if l == label {
			return State(i), true
		}
	}
	return StateInitial, false
}

// StateEvent reports a state transition.
type StateEvent struct {
	State     State
	Previous  State
	Timestamp time.Time
}

// StateHandler receives state transitions.
type StateHandler func(StateEvent)
