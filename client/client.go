package client

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/strataio/cassgo/schema"
	"github.com/strataio/cassgo/transport"
)

// Dialer opens the transport and RPC stub for one node. The timeout bounds
// the TCP connect. The thrift subpackage provides the production
// implementation; tests substitute mocks.
type Dialer func(ctx context.Context, host string, port int, timeout time.Duration) (transport.Conn, transport.Cassandra, error)

// Options carries the injectable collaborators of a PooledClient. Any nil
// field other than Dialer falls back to a default.
type Options struct {
	// Logger receives structured connection and query events. Defaults to
	// a no-op logger.
	Logger log.Logger

	// Dialer opens transports to individual nodes. Required.
	Dialer Dialer

	// Decoder turns raw column bytes into Go values. Defaults to a
	// TypeDecoder honoring cfg.UseExtendedIntegers.
	Decoder schema.Decoder

	// Registerer receives the client's metrics. A nil value skips
	// registration entirely.
	Registerer prometheus.Registerer
}

// PooledClient is the top-level query interface. It owns a connection pool
// spread over the configured nodes and retries a query exactly once when the
// first attempt dies to a transport failure. Application-level verdicts from
// the database are never retried.
type PooledClient struct {
	cfg    ClientConfig
	pool   *pool
	logger log.Logger
	m      *metrics
}

// NewPooledClient validates the configuration and builds the client. No
// connections are opened until the first Execute.
func NewPooledClient(cfg ClientConfig, opts Options) (*PooledClient, error) {
	if opts.Dialer == nil {
		return nil, &TransportError{Message: "a dialer is required"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	cfg = cfg.withDefaults()
	nodes := ParseHosts(cfg.Hosts, logger)
	if len(nodes) == 0 {
		return nil, &TransportError{Message: "no usable hosts configured"}
	}
	if cfg.Keyspace == "" {
		return nil, &TransportError{Message: "a keyspace is required"}
	}

	dec := opts.Decoder
	if dec == nil {
		dec = schema.NewTypeDecoder(cfg.UseExtendedIntegers)
	}

	m := newMetrics(opts.Registerer)
	registry := newNodeRegistry(nodes)

	return &PooledClient{
		cfg:    cfg,
		pool:   newPool(cfg, registry, opts.Dialer, dec, logger, m),
		logger: logger,
		m:      m,
	}, nil
}

// Execute binds args into stmt and runs it on a pooled connection. Binding
// failures surface before any connection is touched. A transport failure on
// the first dispatch gets exactly one retry on a fresh connection;
// database verdicts such as InvalidRequestException do not.
func (c *PooledClient) Execute(ctx context.Context, stmt string, args ...interface{}) (*Result, error) {
	payload, err := Bind(stmt, args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		c.m.queryDuration.Observe(time.Since(start).Seconds())
	}()

	traceID := uuid.NewString()
	level.Debug(c.logger).Log("msg", "executing query", "trace_id", traceID)

	res, err := c.executeBound(ctx, stmt, payload)
	if err != nil && retryable(err) && ctx.Err() == nil {
		c.m.retries.Inc()
		level.Debug(c.logger).Log("msg", "retrying query after transport failure", "trace_id", traceID, "err", err)
		res, err = c.executeBound(ctx, stmt, payload)
	}
	return res, err
}

func (c *PooledClient) executeBound(ctx context.Context, stmt string, payload []byte) (*Result, error) {
	conn, err := c.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.release(conn)
	return conn.executeBound(ctx, stmt, payload)
}

// Ping checks out a connection and verifies it is live.
func (c *PooledClient) Ping(ctx context.Context) error {
	conn, err := c.pool.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.pool.release(conn)
	return conn.Ping(ctx)
}

// Shutdown drains the pool. In-flight queries finish; new Executes fail
// with ErrPoolClosed. Connections still leased when ctx expires are
// force-closed.
func (c *PooledClient) Shutdown(ctx context.Context) error {
	return c.pool.shutdown(ctx)
}
