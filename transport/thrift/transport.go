// Package thrift provides the production transport.Conn implementation: a
// framed Thrift socket with a binary protocol, plus the injection point for
// generated Cassandra bindings. The wire encoding itself lives entirely in
// the Thrift library and the generated stub; this package only manages
// transport lifecycle.
package thrift

import (
	"context"
	"net"
	"strconv"
	"time"

	athrift "github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"

	"github.com/strataio/cassgo/transport"
)

// Conn is a framed Thrift socket to one server node.
type Conn struct {
	addr   string
	socket *athrift.TSocket
	framed athrift.TTransport
}

// Dial prepares (but does not open) a framed transport to host:port. The
// timeout bounds the TCP connect and each socket read/write.
func Dial(host string, port int, timeout time.Duration) (*Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	socket, err := athrift.NewTSocketTimeout(addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", addr)
	}
	return &Conn{
		addr:   addr,
		socket: socket,
		framed: athrift.NewTFramedTransport(socket),
	}, nil
}

// Open establishes the transport. The socket's own dial timeout applies; the
// context is checked so a caller-level deadline that already fired is honored
// without touching the network.
func (c *Conn) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.framed.Open(); err != nil {
		return errors.Wrapf(err, "opening thrift transport to %s", c.addr)
	}
	return nil
}

// Close tears the transport down. Closing an unopened transport is a no-op.
func (c *Conn) Close() error {
	if !c.framed.IsOpen() {
		return nil
	}
	return c.framed.Close()
}

// IsOpen reports whether the transport is usable.
func (c *Conn) IsOpen() bool {
	return c.framed.IsOpen()
}

// RemoteAddr returns the host:port this transport points at.
func (c *Conn) RemoteAddr() string {
	return c.addr
}

// Protocols returns the input and output protocols a generated stub needs.
// Cassandra speaks the binary protocol over framed transport.
func (c *Conn) Protocols() (in, out athrift.TProtocol) {
	factory := athrift.NewTBinaryProtocolFactoryDefault()
	return factory.GetProtocol(c.framed), factory.GetProtocol(c.framed)
}

// StubFactory builds a transport.Cassandra stub over a pair of protocols.
// The adapter around a generated CassandraClient satisfies this.
type StubFactory func(in, out athrift.TProtocol) transport.Cassandra

// NewDialer returns a dial function that pairs a fresh framed transport with
// a stub built by factory. The driver's pool calls this once per connection
// attempt.
func NewDialer(factory StubFactory) func(ctx context.Context, host string, port int, timeout time.Duration) (transport.Conn, transport.Cassandra, error) {
	return func(ctx context.Context, host string, port int, timeout time.Duration) (transport.Conn, transport.Cassandra, error) {
		conn, err := Dial(host, port, timeout)
		if err != nil {
			return nil, nil, err
		}
		in, out := conn.Protocols()
		return conn, factory(in, out), nil
	}
}
