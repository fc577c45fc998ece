package client

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/strataio/cassgo/transport"
)

// ErrPoolClosed is returned by Acquire after Shutdown has begun.
var ErrPoolClosed = errors.New("connection pool is shut down")

// ConnectionInfo identifies the endpoint an error occurred against. It rides
// on every surfaced error so callers can tell which node misbehaved.
type ConnectionInfo struct {
	Host     string
	Port     int
	Keyspace string
}

// String renders host:port/keyspace.
func (ci ConnectionInfo) String() string {
	if ci.Host == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d/%s", ci.Host, ci.Port, ci.Keyspace)
}

// BindError reports a statement rejected before any network call because an
// argument was nil. No partial substitution is performed.
type BindError struct {
	Position int
	Message  string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("EBIND: %s (argument %d)", e.Message, e.Position)
}

// HandshakeError reports a failed or timed-out handshake phase. Code is
// "ETIMEDOUT" when the phase exceeded its budget, "ECONNFAILED" otherwise.
type HandshakeError struct {
	Phase string
	Code  string
	Info  ConnectionInfo
	Cause error
}

func (e *HandshakeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: handshake %s phase failed (%s): %v", e.Code, e.Phase, e.Info, e.Cause)
	}
	return fmt.Sprintf("%s: handshake %s phase failed (%s)", e.Code, e.Phase, e.Info)
}

// Unwrap returns the underlying cause.
func (e *HandshakeError) Unwrap() error { return e.Cause }

// Timeout reports whether the phase failed by exceeding its budget.
func (e *HandshakeError) Timeout() bool { return e.Code == "ETIMEDOUT" }

// RequestError is a deterministic application-level verdict from the server:
// invalid request, missing row or keyspace, unmet consistency, or schema
// disagreement. Never retried; the node is not held down. Kind preserves the
// server exception name.
type RequestError struct {
	Kind    string
	Message string
	Info    ConnectionInfo
	Cause   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Info)
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error { return e.Cause }

// TransportError is a connect, socket, or generic RPC failure. Retried
// exactly once by the pooled client against a fresh connection.
type TransportError struct {
	Message string
	Info    ConnectionInfo
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ETRANSPORT: %s (%s): %v", e.Message, e.Info, e.Cause)
	}
	return fmt.Sprintf("ETRANSPORT: %s (%s)", e.Message, e.Info)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Cause }

// NoResultsError reports an RPC call that yielded no result envelope at all.
// A hard failure, not an empty success.
type NoResultsError struct {
	Info ConnectionInfo
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("ENORESULTS: no results (%s)", e.Info)
}

// requestError converts an application-level exception from the stub into a
// RequestError, defaulting the message when the server sent none.
func requestError(err error, info ConnectionInfo) *RequestError {
	kind := transport.ExceptionName(err)
	msg := err.Error()
	if kind == "NotFoundException" {
		msg = "ColumnFamily or Keyspace does not exist"
	}
	return &RequestError{Kind: kind, Message: msg, Info: info, Cause: err}
}

// retryable reports whether the pooled client may retry once after err.
// Application-level verdicts and binding failures are deterministic, so
// retrying them cannot change the outcome; everything else is treated as a
// transient transport-class failure.
func retryable(err error) bool {
	var (
		request *RequestError
		bind    *BindError
	)
	if errors.As(err, &request) || errors.As(err, &bind) {
		return false
	}
	return true
}
