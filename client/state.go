package client

// ConnState is the position of a connection in its handshake state machine.
// Phases run strictly in sequence; any failure moves the connection to
// StateFailed and closes its transport. StateReady is the only state from
// which queries may execute.
type ConnState int32

const (
	// StateDisconnected is the initial state: transport not yet opened.
	StateDisconnected ConnState = iota
	// StateConnecting means the transport dial is in progress.
	StateConnecting
	// StateLoggingIn means credentials are being presented.
	StateLoggingIn
	// StateLearning means type metadata is being fetched.
	StateLearning
	// StateSelectingKeyspace means the active keyspace is being set.
	StateSelectingKeyspace
	// StateReady means the handshake completed and queries may execute.
	StateReady
	// StateFailed means a handshake phase or query dispatch failed and the
	// transport has been closed.
	StateFailed
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateLoggingIn:
		return "LOGGING_IN"
	case StateLearning:
		return "LEARNING"
	case StateSelectingKeyspace:
		return "SELECTING_KEYSPACE"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
