// Package transport defines the RPC boundary of the driver: the raw
// connection lifecycle, the server stub contract, and the wire-level result
// envelope. The driver never implements the binary protocol itself; it talks
// to the server exclusively through these interfaces, so generated Thrift
// bindings (or a test double) plug in behind them.
package transport

import (
	"context"
	"errors"
)

// Conn is a raw transport to a single server node. Implementations own the
// socket; the driver owns when it opens and closes.
type Conn interface {
	// Open establishes the transport. The context bounds the dial.
	Open(ctx context.Context) error

	// Close tears the transport down. Safe to call more than once.
	Close() error

	// IsOpen reports whether the transport is currently usable.
	IsOpen() bool

	// RemoteAddr returns the host:port this transport points at.
	RemoteAddr() string
}

// Cassandra is the server stub contract: the four RPC calls the driver
// needs. Generated Thrift bindings adapt to this interface.
type Cassandra interface {
	// Login authenticates the connection with the given credentials.
	Login(ctx context.Context, user, pass string) error

	// DescribeKeyspace fetches the column-family definitions for a keyspace.
	DescribeKeyspace(ctx context.Context, keyspace string) (*KsDef, error)

	// SetKeyspace selects the active keyspace for subsequent calls on this
	// connection.
	SetKeyspace(ctx context.Context, keyspace string) error

	// ExecuteCQL runs a bound CQL statement and returns the raw result
	// envelope. A nil envelope with a nil error is a protocol violation the
	// caller must treat as a failure.
	ExecuteCQL(ctx context.Context, query []byte) (*CqlResult, error)
}

// ResultKind tags the shape of a CqlResult envelope.
type ResultKind int

const (
	// KindRows is a SELECT-style result carrying zero or more rows.
	KindRows ResultKind = iota + 1
	// KindVoid acknowledges an operation with nothing to report.
	KindVoid
	// KindInt is a scalar count result.
	KindInt
)

// String returns the wire name of the result kind.
func (k ResultKind) String() string {
	switch k {
	case KindRows:
		return "ROWS"
	case KindVoid:
		return "VOID"
	case KindInt:
		return "INT"
	default:
		return "UNKNOWN"
	}
}

// Column is one raw name/value cell of a row. Name and Value are undecoded
// bytes; the schema layer turns them into native values.
type Column struct {
	Name      []byte
	Value     []byte
	Timestamp int64
}

// CqlRow is one raw row: an undecoded key plus its columns in server order.
type CqlRow struct {
	Key     []byte
	Columns []Column
}

// CqlResult is the raw result envelope of an ExecuteCQL call.
type CqlResult struct {
	Kind ResultKind
	Rows []CqlRow // set when Kind == KindRows
	Num  int64    // set when Kind == KindInt
}

// ColumnDef carries a per-column validator override from the schema.
type ColumnDef struct {
	Name      []byte
	Validator string
}

// CfDef is the wire description of a column family's type metadata.
type CfDef struct {
	Name             string
	KeyValidator     string
	Comparator       string
	DefaultValidator string
	Columns          []ColumnDef
}

// KsDef is the wire description of a keyspace.
type KsDef struct {
	Name   string
	CfDefs []*CfDef
}

// Application-level exceptions. These are deterministic server verdicts on a
// request: retrying the same input cannot change the outcome, so the driver
// surfaces them without retry and without blacklisting the node.

// InvalidRequestError reports a syntactically or semantically invalid request.
type InvalidRequestError struct {
	Why string
}

func (e *InvalidRequestError) Error() string {
	if e.Why == "" {
		return "invalid request"
	}
	return e.Why
}

// NotFoundError reports that a requested row, column family, or keyspace does
// not exist.
type NotFoundError struct{}

func (e *NotFoundError) Error() string { return "not found" }

// TimedOutError reports that the request timed out server-side.
type TimedOutError struct{}

func (e *TimedOutError) Error() string { return "request timed out on server" }

// UnavailableError reports that the requested consistency level could not be
// met by the live replica set.
type UnavailableError struct{}

func (e *UnavailableError) Error() string { return "required consistency level unavailable" }

// SchemaDisagreementError reports that the cluster's schema versions disagree.
type SchemaDisagreementError struct{}

func (e *SchemaDisagreementError) Error() string { return "cluster schema versions disagree" }

// IsApplicationError reports whether err is one of the deterministic
// application-level exceptions, as opposed to a transport failure.
func IsApplicationError(err error) bool {
	return ExceptionName(err) != ""
}

// ExceptionName returns the preserved kind name for an application-level
// exception, or empty for anything else.
func ExceptionName(err error) string {
	var (
		invalid      *InvalidRequestError
		notFound     *NotFoundError
		timedOut     *TimedOutError
		unavailable  *UnavailableError
		disagreement *SchemaDisagreementError
	)
	switch {
	case errors.As(err, &invalid):
		return "InvalidRequestException"
	case errors.As(err, &notFound):
		return "NotFoundException"
	case errors.As(err, &timedOut):
		return "TimedOutException"
	case errors.As(err, &unavailable):
		return "UnavailableException"
	case errors.As(err, &disagreement):
		return "SchemaDisagreementException"
	}
	return ""
}
