package client

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/strataio/cassgo/schema"
	"github.com/strataio/cassgo/transport"
)

// Connection owns one transport and one RPC stub to a single node, drives
// the connect→login→learn→use handshake, and executes bound statements once
// ready. The type schema learned during the handshake is read-only
// afterwards and consulted to decode SELECT results.
type Connection struct {
	cfg    ConnConfig
	conn   transport.Conn
	stub   transport.Cassandra
	dec    schema.Decoder
	logger log.Logger

	mu    sync.Mutex
	state ConnState
	types schema.TypeSchema
}

// NewConnection wires a transport and stub into an unopened connection. A
// nil decoder gets the default TypeDecoder; a nil logger is discarded.
func NewConnection(cfg ConnConfig, conn transport.Conn, stub transport.Cassandra, dec schema.Decoder, logger log.Logger) *Connection {
	if dec == nil {
		dec = schema.NewTypeDecoder(cfg.UseExtendedIntegers)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Connection{
		cfg:    cfg,
		conn:   conn,
		stub:   stub,
		dec:    dec,
		logger: log.With(logger, "node", cfg.Host),
		state:  StateDisconnected,
	}
}

// State returns the connection's handshake state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports whether the connection may execute queries.
func (c *Connection) Ready() bool { return c.State() == StateReady }

// Schema returns the type schema learned during the handshake.
func (c *Connection) Schema() schema.TypeSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.types
}

// Info returns the endpoint identity of this connection.
func (c *Connection) Info() ConnectionInfo { return c.cfg.Info() }

func (c *Connection) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Open runs the full handshake: transport connect, login when credentials
// are configured, type-metadata fetch, keyspace selection. The overall
// connect timeout covers the whole sequence; each RPC phase additionally
// owns its own budget. Any phase failure closes the transport and reports a
// HandshakeError; only a fully handshaken connection becomes Ready.
func (c *Connection) Open(ctx context.Context) error {
	if s := c.State(); s != StateDisconnected {
		return &TransportError{Message: "connection already opened, state " + s.String(), Info: c.cfg.Info()}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	c.setState(StateConnecting)
	if err := c.conn.Open(ctx); err != nil {
		return c.fail("connect", err)
	}

	if c.cfg.User != "" {
		c.setState(StateLoggingIn)
		err := c.phase(ctx, c.cfg.LoginTimeout, func(pctx context.Context) error {
			return c.stub.Login(pctx, c.cfg.User, c.cfg.Pass)
		})
		if err != nil {
			return c.fail("login", err)
		}
	}

	c.setState(StateLearning)
	var ks *transport.KsDef
	err := c.phase(ctx, c.cfg.LearnTimeout, func(pctx context.Context) error {
		var err error
		ks, err = c.stub.DescribeKeyspace(pctx, c.cfg.Keyspace)
		return err
	})
	if err != nil {
		return c.fail("learn", err)
	}

	c.setState(StateSelectingKeyspace)
	err = c.phase(ctx, c.cfg.UseTimeout, func(pctx context.Context) error {
		return c.stub.SetKeyspace(pctx, c.cfg.Keyspace)
	})
	if err != nil {
		return c.fail("use", err)
	}

	c.mu.Lock()
	c.types = schema.FromKeyspace(ks)
	c.state = StateReady
	c.mu.Unlock()

	if c.cfg.LogTiming {
		level.Info(c.logger).Log("msg", "handshake complete", "keyspace", c.cfg.Keyspace, "duration", time.Since(start))
	}
	return nil
}

// phase runs one handshake RPC under its own budget nested inside the
// overall deadline. The deferred cancel releases the phase timer the moment
// the call completes, so a stale timer can never fire into a later phase.
func (c *Connection) phase(ctx context.Context, budget time.Duration, fn func(context.Context) error) error {
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return fn(pctx)
}

// fail closes the transport and reports the phase failure, tagging timeouts
// with an ETIMEDOUT code.
func (c *Connection) fail(phase string, err error) error {
	c.setState(StateFailed)
	_ = c.conn.Close()

	code := "ECONNFAILED"
	if errors.Is(err, context.DeadlineExceeded) {
		code = "ETIMEDOUT"
	}
	return &HandshakeError{Phase: phase, Code: code, Info: c.cfg.Info(), Cause: err}
}

// Execute binds the statement and runs it on this connection. Most callers
// go through PooledClient; this is the single-connection entry point.
func (c *Connection) Execute(ctx context.Context, stmt string, args ...interface{}) (*Result, error) {
	payload, err := Bind(stmt, args)
	if err != nil {
		return nil, err
	}
	return c.executeBound(ctx, stmt, payload)
}

// executeBound dispatches an already-bound payload and shapes the result.
// Application-level verdicts leave the connection Ready; transport failures
// poison it so the pool destroys it on release.
func (c *Connection) executeBound(ctx context.Context, stmt string, payload []byte) (*Result, error) {
	if s := c.State(); s != StateReady {
		return nil, &TransportError{Message: "connection is not ready, state " + s.String(), Info: c.cfg.Info()}
	}

	start := time.Now()
	res, err := c.stub.ExecuteCQL(ctx, payload)
	if err != nil {
		if transport.IsApplicationError(err) {
			return nil, requestError(err, c.cfg.Info())
		}
		c.setState(StateFailed)
		_ = c.conn.Close()
		return nil, &TransportError{Message: "query dispatch failed", Info: c.cfg.Info(), Cause: err}
	}

	if c.cfg.LogTiming {
		level.Info(c.logger).Log("msg", "query executed", "duration", time.Since(start))
	}
	return shapeResult(res, stmt, c.Schema(), c.dec, c.cfg.Info())
}

// Ping verifies liveness by re-selecting the keyspace, the cheapest RPC the
// stub offers. A failure poisons the connection.
func (c *Connection) Ping(ctx context.Context) error {
	if s := c.State(); s != StateReady {
		return &TransportError{Message: "connection is not ready, state " + s.String(), Info: c.cfg.Info()}
	}
	if err := c.stub.SetKeyspace(ctx, c.cfg.Keyspace); err != nil {
		c.setState(StateFailed)
		_ = c.conn.Close()
		return &TransportError{Message: "ping failed", Info: c.cfg.Info(), Cause: err}
	}
	return nil
}

// Close tears the connection down. Safe to call in any state.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state != StateFailed {
		c.state = StateDisconnected
	}
	c.mu.Unlock()
	return c.conn.Close()
}
