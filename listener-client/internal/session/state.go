package session

import "errors"

// Status is the connection state of the presence channel.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// Trigger drives connection state transitions.
type Trigger string

const (
	TriggerConnectAttempt         Trigger = "connect_attempt"
	TriggerConnectionAcknowledged Trigger = "connection_acknowledged"
	TriggerConnectionDropped      Trigger = "connection_dropped"
	TriggerTeardown               Trigger = "teardown"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrTornDown          = errors.New("session torn down")
)

// transitions lists every legal (state, trigger) pair. Teardown is legal
// from every state and handled separately.
var transitions = map[Status]map[Trigger]Status{
	StatusDisconnected: {
		TriggerConnectAttempt: StatusConnecting,
	},
	StatusConnecting: {
		TriggerConnectionAcknowledged: StatusConnected,
		TriggerConnectionDropped:      StatusReconnecting,
	},
	StatusConnected: {
		TriggerConnectionDropped: StatusReconnecting,
	},
	StatusReconnecting: {
		TriggerConnectAttempt:         StatusReconnecting,
		TriggerConnectionAcknowledged: StatusConnected,
		TriggerConnectionDropped:      StatusReconnecting,
	},
}

// next returns the state reached from s on t.
func next(s Status, t Trigger) (Status, bool) {
	if t == TriggerTeardown {
		return StatusDisconnected, true
	}
	to, ok := transitions[s][t]
	return to, ok
}
